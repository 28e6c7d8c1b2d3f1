package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/catalog"
	"github.com/trezcool/academia/core/certificate"
	"github.com/trezcool/academia/core/completion"
	"github.com/trezcool/academia/core/user"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ProfileResponse struct {
	User            user.User                    `json:"user"`
	Role            user.Role                    `json:"role"`
	Certificates    []certificate.Certificate    `json:"certificates"`
	Progress        []completion.ProgramProgress `json:"progress"`
	ProgressPercent int                          `json:"progress_percent"`
}

type StatsResponse struct {
	Participants int `json:"participants"`
	Curators     int `json:"curators"`
	Programs     int `json:"programs"`
	Certificates int `json:"certificates"`
}

type ProgramResponse struct {
	catalog.Program
	IsFavorite bool `json:"is_favorite"`
}

type FavoriteResponse struct {
	IsFavorite bool `json:"is_favorite"`
}

type ApprovalRequest struct {
	IsApproved *bool `json:"is_approved" validate:"required"`
}

func (ar *ApprovalRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(ar)
}

type IDsResponse struct {
	IDs []string `json:"ids"`
}
