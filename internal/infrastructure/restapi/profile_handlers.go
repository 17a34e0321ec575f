package restapi

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"escrow_wallet/internal/app/port"
	"escrow_wallet/internal/domain/entity"
)

// APIErrorResponse is returned for every failed request.
type APIErrorResponse struct {
	Error string `json:"error"`
}

// ProfileHandler serves the wallet panel.
type ProfileHandler struct {
	profiles port.ProfileService
	signer   string
	logger   port.Logger
}

// NewProfileHandler creates a ProfileHandler. signer is the configured account, "" when read-only.
func NewProfileHandler(profiles port.ProfileService, signer string, l port.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, signer: signer, logger: l}
}

// GetProfileHandler returns the profile of the signer, or of ?address= when given.
// ?ensName= and ?ensAvatar= override the display identity.
func (h *ProfileHandler) GetProfileHandler(c *gin.Context) {
	address := c.DefaultQuery("address", h.signer)
	if address == "" {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "no wallet connected: configure a signer or pass ?address="})
		return
	}
	if !common.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "invalid address"})
		return
	}

	identity := entity.Identity{
		Address:   common.HexToAddress(address).Hex(),
		ENSName:   c.Query("ensName"),
		ENSAvatar: c.Query("ensAvatar"),
	}
	h.logger.Debug("Profile requested", "address", identity.Address)
	c.JSON(http.StatusOK, h.profiles.Profile(c.Request.Context(), identity))
}
