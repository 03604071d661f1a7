// Package ui holds the terminal collaborators of the deploy client: the message
// catalogue, line-based prompts, the upload spinner and output formatting.
package ui

import "fmt"

// messages is the catalogue of user-facing strings, keyed by command and message.
var messages = map[string]string{
	"deploy.select-project":      "Select a project",
	"deploy.selected-project":    "Selected project:",
	"deploy.select-folder":       "Folder to deploy",
	"deploy.selected-folder":     "Selected folder:",
	"deploy.invalid-folder":      "Invalid folder.",
	"deploy.no-files":            "No files matched.",
	"deploy.warning-no-html":     "No %s files found in this folder. Deploy anyway?",
	"deploy.warning-server-side": "Server-side files (%s) will not be executed. Deploy anyway?",
	"deploy.cancelled":           "Deployment cancelled.",
	"deploy.bundle":              "Bundle of %d files, %s",
	"deploy.dry-run":             "Dry run: nothing was uploaded.",
	"deploy.uploading":           "Uploading… %d%%",
	"deploy.uploaded":            "Bundle uploaded.",
	"deploy.activate":            "Activate this deployment now?",
	"deploy.activated":           "Deployment activated.",
	"deploy.refetch-failed":      "Could not refresh project details.",
	"deploy.history-failed":      "Could not record deployment history.",
	"projects.none":              "No projects.",
	"history.none":               "No deployments recorded for %s.",
	"history.all-projects":       "any project",
	"prompt.yes-no":              "[y/N]",
	"prompt.choose":              "Enter a number (1-%d), or blank to cancel:",
}

// T looks up a message by key and formats it with args. Unknown keys are returned
// verbatim so that a missing entry is visible rather than silent.
func T(key string, args ...any) string {
	msg, ok := messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
