package build

// DeploymentType is an enum specifying the deployment to compile.
type DeploymentType byte

const (
	// Development is a deployment that lets unit tests log to stdout via
	// the stdlog build tag.
	Development DeploymentType = iota

	// Production is a deployment that always routes through the rotating
	// log writer.
	Production
)

// String returns a human readable name for a build type.
func (b DeploymentType) String() string {
	switch b {
	case Development:
		return "development"
	case Production:
		return "production"
	default:
		return "unknown"
	}
}
