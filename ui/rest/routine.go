package rest

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	domainRoutine "github.com/zapleads/zapleads/domains/routine"
	followupApp "github.com/zapleads/zapleads/followup/application"
	followupDomain "github.com/zapleads/zapleads/followup/domain"
	pkgError "github.com/zapleads/zapleads/pkg/error"
	"github.com/zapleads/zapleads/pkg/utils"
	"github.com/zapleads/zapleads/validations"
)

type Routine struct {
	Service *followupApp.Service
}

func InitRestRoutine(app fiber.Router, service *followupApp.Service) Routine {
	rest := Routine{Service: service}

	group := app.Group("/routines")
	group.Get("/", rest.List)
	group.Post("/", rest.Upsert)
	group.Delete("/:sequence", rest.Delete)
	group.Get("/state/:conversation_id", rest.GetState)
	group.Post("/state/:conversation_id/reset", rest.Reset)

	return rest
}

func (handler *Routine) List(c *fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("tenant_id: cannot be blank."))
	}

	defs, err := handler.Service.ListDefinitions(c.UserContext(), tenantID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Routine definitions retrieved",
		Results: defs,
	})
}

func (handler *Routine) Upsert(c *fiber.Ctx) error {
	var request domainRoutine.UpsertRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	utils.PanicIfNeeded(validations.ValidateUpsertRoutine(c.UserContext(), request))

	def, err := handler.Service.UpsertDefinition(
		c.UserContext(),
		request.TenantID,
		request.Sequence,
		request.HoursDelay,
		request.Text,
		request.MediaURL,
	)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Routine definition saved",
		Results: def,
	})
}

func (handler *Routine) Delete(c *fiber.Ctx) error {
	sequence, err := c.ParamsInt("sequence")
	if err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("sequence: must be an integer."))
	}
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("tenant_id: cannot be blank."))
	}

	err = handler.Service.DeleteDefinition(c.UserContext(), tenantID, sequence)
	if errors.Is(err, followupDomain.ErrInvalidSequence) {
		utils.PanicIfNeeded(pkgError.ValidationError(err.Error()))
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Routine definition deleted",
	})
}

func (handler *Routine) GetState(c *fiber.Ctx) error {
	conversationID := c.Params("conversation_id")

	state, err := handler.Service.GetState(c.UserContext(), conversationID)
	if errors.Is(err, followupDomain.ErrStateNotFound) {
		utils.PanicIfNeeded(pkgError.NotFoundError(err.Error()))
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Routine state retrieved",
		Results: state,
	})
}

func (handler *Routine) Reset(c *fiber.Ctx) error {
	request := domainRoutine.ResetRequest{ConversationID: c.Params("conversation_id")}
	utils.PanicIfNeeded(validations.ValidateResetRoutine(c.UserContext(), request))

	err := handler.Service.Reset(c.UserContext(), request.ConversationID)
	if errors.Is(err, followupDomain.ErrStateNotFound) {
		utils.PanicIfNeeded(pkgError.NotFoundError(err.Error()))
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Routine state reset",
	})
}
