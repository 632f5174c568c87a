package parking

// Name identifies the application in logs and user agents
const Name = "gatewatch"

// Version is overridden at build time with -ldflags
var Version = "0.1.0"
