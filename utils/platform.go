package utils

import (
	"errors"
	"log"
	"net"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// PlatformErrorKind groups Discord API failures by how callers react to them.
type PlatformErrorKind int

const (
	// Unexpected covers anything that is not a recognised platform failure.
	Unexpected PlatformErrorKind = iota
	// NotFound means the target message, channel or member is already gone.
	NotFound
	// Forbidden means the bot lacks the permission for the call.
	Forbidden
	// Delivery covers other REST and network failures.
	Delivery
)

func (k PlatformErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Delivery:
		return "delivery"
	default:
		return "unexpected"
	}
}

// TransientPlatformErrors are the kinds a dashboard or reaction call may
// ignore: the next reconcile fixes whatever was left behind.
var TransientPlatformErrors = []PlatformErrorKind{NotFound, Forbidden, Delivery}

// ClassifyPlatformError maps err onto a PlatformErrorKind.
func ClassifyPlatformError(err error) PlatformErrorKind {
	if err == nil {
		return Unexpected
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage,
				discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownGuild:
				return NotFound
			case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
				return Forbidden
			}
		}
		if restErr.Response != nil {
			switch restErr.Response.StatusCode {
			case http.StatusNotFound:
				return NotFound
			case http.StatusForbidden:
				return Forbidden
			}
		}
		return Delivery
	}
	if errors.Is(err, discordgo.ErrJSONUnmarshal) {
		return Delivery
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Delivery
	}
	return Unexpected
}

// BestEffort swallows err when its kind is one of tolerated, logging it under
// op. Any other error is returned unchanged.
func BestEffort(op string, err error, tolerated ...PlatformErrorKind) error {
	if err == nil {
		return nil
	}
	kind := ClassifyPlatformError(err)
	for _, k := range tolerated {
		if k == kind {
			log.Printf("platform: ignored %s error op=%s err=%v", kind, op, err)
			return nil
		}
	}
	return err
}

// IsNotFound reports whether err means the platform object no longer exists.
func IsNotFound(err error) bool {
	return err != nil && ClassifyPlatformError(err) == NotFound
}
