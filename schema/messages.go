package schema

import "fmt"

// NotRepositoryStatus is the prompt status outside a git work tree.
const NotRepositoryStatus = "Not a Git repository"

// CredentialHelperWarning is shown instead of running git when no credential helper is configured.
const CredentialHelperWarning = "Git credential helper is not installed. Please download and installed from https://gitcredentialstore.codeplex.com/"

// TerminalUnavailableMessage is shown for the terminal literal when the console cannot open a local terminal.
const TerminalUnavailableMessage = "No terminal is available in this console (remote session or no launcher configured)"

// HelpText is the usage block printed by help and ?.
var HelpText = []string{
	"Git Console commands:",
	"  help, ?             show this help",
	"  clear, cls          clear the console",
	"  cd [dir]            change the working directory",
	"  exit, quit          leave the console",
	"  git                 open a terminal in the working directory",
	"  git <command>       run a git command, e.g. git status",
	"  <program> [args]    run any other program",
	"Tab completes, Up/Down browse history, Ctrl+C interrupts the running command.",
}

// FormatPrompt renders the prompt token for a status line.
func FormatPrompt(status string) string {
	return "[" + status + "]>"
}

// StartFailureMessage is the error line emitted when a process cannot be spawned.
func StartFailureMessage(command, args string) string {
	return fmt.Sprintf("Failed to start process \"%s\" with arguments \"%s\"", command, args)
}
