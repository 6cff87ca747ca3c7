package handler

import (
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/validation"
	s "solmeet/pkg/string"
	v "solmeet/pkg/validation"
)

// PresentClaimRequest carries the scanned credential in any text form:
// the solmeet://claim/ URI or the bare base64url payload.
type PresentClaimRequest struct {
	Credential string `json:"credential" validate:"required,notblank"`
}

func (r *PresentClaimRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.Credential)
}

func (r *PresentClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := v.Validate(r); err != nil {
		return err
	}
	return validation.CheckStringLength("credential", r.Credential, validation.MaxCredentialTextLength)
}
