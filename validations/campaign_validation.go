package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	domainCampaign "github.com/zapleads/zapleads/domains/campaign"
	pkgError "github.com/zapleads/zapleads/pkg/error"
)

func ValidateCreateCampaign(ctx context.Context, request domainCampaign.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.TenantID, validation.Required),
		validation.Field(&request.Name, validation.Required),
		validation.Field(&request.MessageTemplate, validation.Required),
		validation.Field(&request.ChatsPerDispatch, validation.Min(1)),
		validation.Field(&request.IntervalMinutes, validation.Min(1)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
