package codes

// Exit codes reserved for failures that never reach a collaborator process.
// Any other non-zero code is the collaborator's own status passed through.
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitAcquisition   = 3
	ExitAssembly      = 4
	ExitSpawnFailed   = 126
	ExitToolMissing   = 127
)

// ErrorCodes maps cargo-xwin's own exit codes to their descriptions
var ErrorCodes = map[int]string{
	ExitSuccess:       "Success",
	ExitFailure:       "General failure",
	ExitConfiguration: "Invalid target or configuration",
	ExitAcquisition:   "Failed to prepare the Windows SDK/CRT payload",
	ExitAssembly:      "Prepared payload is missing expected files",
	ExitSpawnFailed:   "Collaborator could not be started",
	ExitToolMissing:   "Collaborator executable not found",
}

// IsSuccess returns true if the exit code indicates success
func IsSuccess(code int) bool {
	return code == ExitSuccess
}

// GetErrorMessage returns the message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}
