package bootstrap

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Invite struct {
	RoomID      string `json:"roomId"`
	Generated   bool   `json:"generated"`
	Invite      string `json:"invite"`
	DisplayName string `json:"displayName"`
}

// InviteHandler answers with the room a visitor should join, a shareable
// link to it and a suggested display name.
func InviteHandler(base string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		roomID, generated := RoomID(ctx.Request.URL.Query())
		link, err := InviteLink(base, roomID)
		if err != nil {
			log.Error().Err(err).Str("base", base).Msg("invalid invite base url")
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "invite-failed"})
			return
		}

		ctx.JSON(http.StatusOK, Invite{
			RoomID:      roomID,
			Generated:   generated,
			Invite:      link,
			DisplayName: DisplayName(nil),
		})
	}
}
