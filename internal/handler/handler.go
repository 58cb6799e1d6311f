// Package handler contains the HTTP handlers for every resource.
package handler

import (
	"strconv"

	"saas-platform/internal/audit"
	"saas-platform/internal/provision"

	"github.com/labstack/echo/v4"
)

var (
	auditRecorder *audit.Recorder
	provisioner   *provision.Provisioner
)

// Initialize wires the handlers to their collaborators. Called once at
// startup before the route table is built.
func Initialize(recorder *audit.Recorder, prov *provision.Provisioner) {
	auditRecorder = recorder
	provisioner = prov
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// actorID returns the authenticated user's id, or 0 when absent.
func actorID(c echo.Context) uint {
	if id, ok := c.Get("user_id").(uint); ok {
		return id
	}
	return 0
}

// actorTenant returns the authenticated user's tenant id, if any.
func actorTenant(c echo.Context) *uint {
	if id, ok := c.Get("tenant_id").(uint); ok {
		return &id
	}
	return nil
}
