package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	domainRoutine "github.com/zapleads/zapleads/domains/routine"
	followupDomain "github.com/zapleads/zapleads/followup/domain"
	pkgError "github.com/zapleads/zapleads/pkg/error"
)

func ValidateUpsertRoutine(ctx context.Context, request domainRoutine.UpsertRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.TenantID, validation.Required),
		validation.Field(&request.Sequence, validation.Required, validation.Min(1), validation.Max(followupDomain.MaxSequence)),
		validation.Field(&request.Text, validation.Required),
		validation.Field(&request.HoursDelay, validation.Min(0)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateResetRoutine(ctx context.Context, request domainRoutine.ResetRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ConversationID, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
