package instance

import "github.com/angelmondragon/userbridge-backend/pkg/env"

// GetID returns the identifier of the running process. The platform dyno name
// wins over the host name.
func GetID() string {
	return env.First("local", "DYNO", "HOSTNAME")
}
