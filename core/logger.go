package core

// Logger is the application-wide logger.
// expected args fmt: error, map[string]interface{}, user.User
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	// Critical reports a failure needing an operator, without exiting.
	Critical(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
