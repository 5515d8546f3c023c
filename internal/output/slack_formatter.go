package output

import (
	"fmt"
	"strings"

	"github.com/draxon/pulse/internal/services"
	"github.com/draxon/pulse/internal/utils"
	"github.com/slack-go/slack"
)

// Slash command names
const (
	CommandSOS    = "/sos"
	CommandSetup  = "/pulse-setup"
	CommandStatus = "/pulse-status"
	CommandAbout  = "/pulse-about"
)

// AboutMessage describes the system to members
const AboutMessage = "DraXon PULSE (Planetary & Universal Locator System for Emergencies) lets " +
	"authorized members raise emergency alerts and coordinates the response in a dedicated thread.\n\n" +
	"*Key Features:*\n" +
	"• Emergency Alert System\n" +
	"• Real-time Status Monitoring\n" +
	"• Staff Management System\n" +
	"• Alert Statistics Tracking\n\n" +
	"Use `" + CommandSOS + "` to report an emergency situation.\n" +
	"Use `" + CommandStatus + "` to check system status and statistics.\n" +
	"Use `" + CommandSetup + " #channel` to choose where alerts are posted."

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

// submitterRef renders a member as a mention followed by their display name
func submitterRef(id, name string) string {
	if name == "" {
		return fmt.Sprintf("<@%s>", id)
	}
	return fmt.Sprintf("<@%s> (%s)", id, utils.EscapeSlackText(name))
}

// ========================================
// Alert messages
// ========================================

// AlertText is the plain mrkdwn form of an alert, used as the notification
// fallback for AlertBlocks.
func AlertText(msg services.AlertMessage) string {
	var sb strings.Builder
	sb.WriteString(":rotating_light: *PULSE EMERGENCY ALERT* :rotating_light:\n\n")
	sb.WriteString(fmt.Sprintf("*Alert from:* %s\n", submitterRef(msg.SubmitterID, msg.SubmitterName)))
	sb.WriteString(fmt.Sprintf("*Location:* %s\n", utils.EscapeSlackText(msg.Location)))
	sb.WriteString(fmt.Sprintf("*Situation:* %s\n\n", utils.EscapeSlackText(msg.Reason)))
	sb.WriteString("_This is a priority alert from the PULSE system_")
	return sb.String()
}

// AlertBlocks renders an alert as Block Kit blocks
func AlertBlocks(msg services.AlertMessage) []slack.Block {
	fields := []*slack.TextBlockObject{
		mrkdwn("*Alert from:*\n" + submitterRef(msg.SubmitterID, msg.SubmitterName)),
		mrkdwn(fmt.Sprintf("*Reported:*\n<!date^%d^{date_short_pretty} {time}|%s>",
			msg.SubmittedAt.Unix(), msg.SubmittedAt.UTC().Format("2006-01-02 15:04 UTC"))),
	}

	return []slack.Block{
		slack.NewHeaderBlock(plain(":rotating_light: PULSE EMERGENCY ALERT :rotating_light:")),
		slack.NewSectionBlock(nil, fields, nil),
		slack.NewSectionBlock(mrkdwn("*Location:*\n"+utils.EscapeSlackText(msg.Location)), nil, nil),
		slack.NewSectionBlock(mrkdwn("*Situation:*\n"+utils.EscapeSlackText(msg.Reason)), nil, nil),
		slack.NewContextBlock("", mrkdwn("_This is a priority alert from the PULSE system_")),
	}
}

// ThreadSeedText opens the coordination thread under an alert
func ThreadSeedText(thread services.ThreadOptions) string {
	return fmt.Sprintf("*%s*\nEmergency thread created for <@%s>'s alert.\n"+
		"Please use this thread to coordinate response efforts.",
		utils.EscapeSlackText(thread.Name), thread.SubmitterID)
}

// SuccessText acknowledges a logged alert to the submitter
func SuccessText(withThread bool) string {
	if withThread {
		return ":rotating_light: Emergency alert posted successfully.\n" +
			"A thread has been created to track this emergency.\n" +
			"Please monitor the alert channel for responses."
	}
	return ":rotating_light: Emergency alert posted successfully.\n" +
		"The coordination thread could not be created; please reply to the alert directly.\n" +
		"Please monitor the alert channel for responses."
}

// FormOpenFailedText is sent when the alert form cannot be shown
const FormOpenFailedText = "Failed to create emergency alert form. Please try again."

// ========================================
// Setup messages
// ========================================

// SetupForbiddenText rejects setup from members below leadership
const SetupForbiddenText = ":warning: Only leadership can configure the alert channel."

// SetupUsageText explains the setup command arguments
const SetupUsageText = ":warning: Usage: `" + CommandSetup + " #channel`"

// SetupFailedText reports an unexpected setup failure
const SetupFailedText = ":warning: Failed to configure alert channel. Please try again."

// SetupConfirmText confirms a configured alert channel
func SetupConfirmText(channelID string) string {
	return fmt.Sprintf(":white_check_mark: PULSE alert channel configured successfully!\n"+
		"Channel: <#%s>\nAll emergency alerts will be posted here.", channelID)
}

// SetupNotMemberText reports that the bot cannot post in the chosen channel
func SetupNotMemberText(channelID string) string {
	return fmt.Sprintf(":warning: Warning: PULSE is not a member of <#%s>.\n"+
		"Missing: Send Messages, Send Messages in Threads\n"+
		"Please invite the app to the channel (`/invite @PULSE`) and run setup again.", channelID)
}

// SetupChannelNotFoundText reports an unresolvable channel argument
func SetupChannelNotFoundText(arg string) string {
	return fmt.Sprintf(":warning: Channel %s could not be found.", utils.EscapeSlackText(arg))
}

// SetupNoticeText is posted to a newly configured alert channel
const SetupNoticeText = ":wrench: *PULSE System Configuration*\n" +
	"This channel has been configured for PULSE emergency alerts.\n" +
	"Each alert will create a new thread for coordination."

// ========================================
// Status and about
// ========================================

// StatusForbiddenText rejects status requests from members below management
const StatusForbiddenText = ":warning: Only management and leadership can view system status."

// AboutBlocks renders the about message
func AboutBlocks(version, buildDate string) []slack.Block {
	return []slack.Block{
		slack.NewHeaderBlock(plain(":information_source: About DraXon PULSE")),
		slack.NewSectionBlock(mrkdwn(AboutMessage), nil, nil),
		slack.NewContextBlock("", mrkdwn(fmt.Sprintf("Version %s • Built %s", version, buildDate))),
	}
}

// StatusText is the mrkdwn form of a status report
func StatusText(r services.StatusReport) string {
	var sb strings.Builder
	sb.WriteString(":bar_chart: *PULSE System Status*\n\n")
	sb.WriteString(systemSection(r) + "\n\n")
	sb.WriteString(rolesSection(r) + "\n\n")
	sb.WriteString(alertsSection(r) + "\n\n")
	sb.WriteString(configSection(r))
	return sb.String()
}

// StatusBlocks renders a status report as Block Kit blocks
func StatusBlocks(r services.StatusReport) []slack.Block {
	return []slack.Block{
		slack.NewHeaderBlock(plain(":bar_chart: PULSE System Status")),
		slack.NewSectionBlock(mrkdwn(systemSection(r)), nil, nil),
		slack.NewDividerBlock(),
		slack.NewSectionBlock(mrkdwn(rolesSection(r)), nil, nil),
		slack.NewDividerBlock(),
		slack.NewSectionBlock(mrkdwn(alertsSection(r)), nil, nil),
		slack.NewDividerBlock(),
		slack.NewSectionBlock(mrkdwn(configSection(r)), nil, nil),
		slack.NewContextBlock("", mrkdwn(fmt.Sprintf("Generated <!date^%d^{date_short_pretty} {time}|%s>",
			r.GeneratedAt.Unix(), r.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")))),
	}
}

func systemSection(r services.StatusReport) string {
	return fmt.Sprintf("*System Information*\nVersion: %s\nBuild Date: %s\nUptime: %s",
		r.Version, r.BuildDate, utils.FormatUptime(r.Uptime))
}

func rolesSection(r services.StatusReport) string {
	var sb strings.Builder
	sb.WriteString(":busts_in_silhouette: *Staff Breakdown*\n")
	if !r.RolesAvailable {
		sb.WriteString("_Role membership is currently unavailable_")
		return sb.String()
	}
	for _, rc := range r.Roles {
		sb.WriteString(fmt.Sprintf("└ %s: %s\n", rc.Role, utils.FormatNumber(int64(rc.Members))))
	}
	sb.WriteString(fmt.Sprintf("Total Members: %s", utils.FormatNumber(int64(r.TotalMembers))))
	return sb.String()
}

func alertsSection(r services.StatusReport) string {
	if r.Alerts.Degraded {
		return ":rotating_light: *Alert Statistics*\n_Alert statistics are currently unavailable_"
	}
	return fmt.Sprintf(":rotating_light: *Alert Statistics*\nTotal Alerts: %s\nRecent (24h): %s",
		utils.FormatNumber(r.Alerts.Total), utils.FormatNumber(r.Alerts.Recent))
}

func configSection(r services.StatusReport) string {
	channel := "Not Configured"
	if r.ChannelConfigured {
		channel = fmt.Sprintf("<#%s>", r.AlertChannelID)
	}
	db := ":white_check_mark: Connected"
	if !r.DatabaseOK {
		db = ":x: Unavailable"
	}
	return fmt.Sprintf(":gear: *System Configuration*\nAlert Channel: %s\nDatabase Status: %s", channel, db)
}
