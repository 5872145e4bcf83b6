package rest

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	campaignApp "github.com/zapleads/zapleads/campaign/application"
	campaignDomain "github.com/zapleads/zapleads/campaign/domain"
	domainCampaign "github.com/zapleads/zapleads/domains/campaign"
	pkgError "github.com/zapleads/zapleads/pkg/error"
	"github.com/zapleads/zapleads/pkg/utils"
	"github.com/zapleads/zapleads/validations"
)

type Campaign struct {
	Service *campaignApp.Service
}

func InitRestCampaign(app fiber.Router, service *campaignApp.Service) Campaign {
	rest := Campaign{Service: service}

	group := app.Group("/campaigns")
	group.Get("/", rest.List)
	group.Post("/", rest.Create)
	group.Get("/:id", rest.Get)
	group.Get("/:id/progress", rest.Progress)
	group.Post("/:id/start", rest.Start)
	group.Post("/:id/pause", rest.Pause)
	group.Post("/:id/cancel", rest.Cancel)

	return rest
}

func (handler *Campaign) Create(c *fiber.Ctx) error {
	var request domainCampaign.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	utils.PanicIfNeeded(validations.ValidateCreateCampaign(c.UserContext(), request))

	created, err := handler.Service.Create(
		c.UserContext(),
		request.TenantID,
		request.Name,
		request.MessageTemplate,
		request.ChatsPerDispatch,
		request.IntervalMinutes,
		campaignDomain.TargetSelector{TagIDs: request.TagIDs, AllTrusted: request.AllTrusted},
	)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign created",
		Results: created,
	})
}

func (handler *Campaign) List(c *fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("tenant_id: cannot be blank."))
	}

	campaigns, err := handler.Service.List(c.UserContext(), tenantID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaigns retrieved",
		Results: campaigns,
	})
}

func (handler *Campaign) Get(c *fiber.Ctx) error {
	campaign, err := handler.Service.Get(c.UserContext(), c.Params("id"))
	handler.mapError(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign retrieved",
		Results: campaign,
	})
}

func (handler *Campaign) Progress(c *fiber.Ctx) error {
	campaign, err := handler.Service.Get(c.UserContext(), c.Params("id"))
	handler.mapError(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign progress retrieved",
		Results: domainCampaign.ProgressResponse{
			CampaignID:      campaign.ID,
			Status:          string(campaign.Status),
			TotalTargets:    campaign.TotalTargets,
			DispatchedCount: campaign.DispatchedCount(),
			Progress:        campaign.Progress(),
		},
	})
}

func (handler *Campaign) Start(c *fiber.Ctx) error {
	campaign, err := handler.Service.Start(c.UserContext(), c.Params("id"))
	handler.mapError(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign started",
		Results: campaign,
	})
}

func (handler *Campaign) Pause(c *fiber.Ctx) error {
	campaign, err := handler.Service.Pause(c.UserContext(), c.Params("id"))
	handler.mapError(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign paused",
		Results: campaign,
	})
}

func (handler *Campaign) Cancel(c *fiber.Ctx) error {
	campaign, err := handler.Service.Cancel(c.UserContext(), c.Params("id"))
	handler.mapError(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign canceled",
		Results: campaign,
	})
}

func (handler *Campaign) mapError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, campaignDomain.ErrCampaignNotFound) {
		utils.PanicIfNeeded(pkgError.NotFoundError(err.Error()))
	}
	if errors.Is(err, campaignDomain.ErrInvalidTransition) {
		utils.PanicIfNeeded(pkgError.ConflictError(err.Error()))
	}
	utils.PanicIfNeeded(err)
}
