package slack

import (
	"strings"

	"github.com/draxon/pulse/internal/services"
	"github.com/slack-go/slack"
)

// AlertModalCallbackID identifies submissions of the alert form
const AlertModalCallbackID = "pulse_sos"

// AlertModal builds the emergency alert form. The channel the command was
// run from travels in the private metadata so replies can go back there.
func AlertModal(originChannelID string) slack.ModalViewRequest {
	location := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Enter your current location", false, false),
		services.FieldLocation,
	)
	location.MaxLength = 100

	reason := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Describe your emergency situation", false, false),
		services.FieldReason,
	)
	reason.MaxLength = 200
	reason.Multiline = true

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      AlertModalCallbackID,
		PrivateMetadata: originChannelID,
		Title:           slack.NewTextBlockObject(slack.PlainTextType, "PULSE Emergency Alert", false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, "Send Alert", false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Blocks: slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewInputBlock(services.FieldLocation,
					slack.NewTextBlockObject(slack.PlainTextType, "Location", false, false), nil, location),
				slack.NewInputBlock(services.FieldReason,
					slack.NewTextBlockObject(slack.PlainTextType, "Emergency description", false, false), nil, reason),
			},
		},
	}
}

// ParseAlertForm reads the alert form fields out of a submitted view
func ParseAlertForm(view slack.View) services.AlertForm {
	return services.AlertForm{
		Location: inputValue(view.State, services.FieldLocation),
		Reason:   inputValue(view.State, services.FieldReason),
	}
}

func inputValue(state *slack.ViewState, field string) string {
	if state == nil {
		return ""
	}
	return strings.TrimSpace(state.Values[field][field].Value)
}

// ValidationResponse shows field errors inline in the open modal
func ValidationResponse(err *services.InvalidInputError) *slack.ViewSubmissionResponse {
	return slack.NewErrorsViewSubmissionResponse(err.Fields)
}
