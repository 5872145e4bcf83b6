package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/zapleads/zapleads/core/config"
	"github.com/zapleads/zapleads/infrastructure/valkey"
	"github.com/zapleads/zapleads/pkg/utils"
	"gorm.io/gorm"
)

type Health struct {
	db     *gorm.DB
	valkey *valkey.Client
}

func InitRestHealth(app fiber.Router, db *gorm.DB, vk *valkey.Client) Health {
	handler := Health{db: db, valkey: vk}
	app.Get("/health", handler.GetStatus)
	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	checks := map[string]string{
		"database": "ok",
		"valkey":   "disabled",
	}
	status := 200

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.Ping() != nil {
		checks["database"] = "down"
		status = 503
	}
	if h.valkey != nil {
		checks["valkey"] = "ok"
		if !h.valkey.IsConnected() {
			checks["valkey"] = "down"
		}
	}

	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    "SUCCESS",
		Message: "Health status retrieved",
		Results: map[string]any{
			"version": config.Global.App.Version,
			"checks":  checks,
		},
	})
}
