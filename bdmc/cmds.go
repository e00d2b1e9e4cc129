package bdmc

import "strconv"

// Raw device commands. Each is a complete framed command terminated by '\r'.
var (
	// CmdReset restarts the driver.
	CmdReset = []byte("RESET\r")
	// CmdFullStop stops every motor.
	CmdFullStop = []byte("v0\r")
	// CmdDirectionLeft defines counterclockwise as the positive direction.
	CmdDirectionLeft = []byte("ADL\r")
	// CmdDirectionRight defines clockwise as the positive direction.
	CmdDirectionRight = []byte("ADR\r")
	// CmdPositionEchoOff disables position responses.
	CmdPositionEchoOff = []byte("NPOFF\r")
	// CmdVelocityEchoOff disables velocity responses.
	CmdVelocityEchoOff = []byte("NVOFF\r")
	// CmdSaveSettings writes the current parameters to EEPROM.
	CmdSaveSettings = []byte("EEPSAVE\r")
)

// Addressed prefixes cmd with a motor id, e.g. Addressed(2, CmdFullStop)
// yields "2v0\r".
func Addressed(motorID int, cmd []byte) []byte {
	return append([]byte(strconv.Itoa(motorID)), cmd...)
}
