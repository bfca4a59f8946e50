package install

import "fmt"

// Phase classifies how far provisioning has progressed. It is computed
// fresh from live system inspection on every invocation and is totally
// ordered from NoDisk to Ready.
type Phase int

const (
	// Unknown means detection could not classify the system. Treated
	// as fatal; it should be unreachable given the ordered checks.
	Unknown Phase = iota
	NoDisk
	NoPartitions
	NotEncrypted
	PartialEncrypted
	VolumesClosed
	RootOpenHomeClosed
	NoRootFilesystem
	NoHomeFilesystem
	NotMounted
	PartialMount
	NoSystem
	NotConfigured
	Ready

	phaseCount
)

// ErrorPhase is written to checkpoints on fatal failure. It is never
// produced by detection and takes no part in the phase order.
const ErrorPhase Phase = -1

var phaseNames = map[Phase]string{
	Unknown:            "UNKNOWN",
	NoDisk:             "NO_DISK",
	NoPartitions:       "NO_PARTITIONS",
	NotEncrypted:       "NOT_ENCRYPTED",
	PartialEncrypted:   "PARTIAL_ENCRYPTED",
	VolumesClosed:      "VOLUMES_CLOSED",
	RootOpenHomeClosed: "ROOT_OPEN_HOME_CLOSED",
	NoRootFilesystem:   "NO_ROOT_FILESYSTEM",
	NoHomeFilesystem:   "NO_HOME_FILESYSTEM",
	NotMounted:         "NOT_MOUNTED",
	PartialMount:       "PARTIAL_MOUNT",
	NoSystem:           "NO_SYSTEM",
	NotConfigured:      "NOT_CONFIGURED",
	Ready:              "READY",
	ErrorPhase:         "ERROR",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ParsePhase maps a checkpoint string back to a Phase.
func ParsePhase(s string) (Phase, bool) {
	for p, name := range phaseNames {
		if name == s {
			return p, true
		}
	}
	return Unknown, false
}

// Before reports whether p precedes o in the installation order.
// Unknown and ErrorPhase are outside the order and never compare true.
func (p Phase) Before(o Phase) bool {
	if !p.Ordered() || !o.Ordered() {
		return false
	}
	return p < o
}

// Ordered reports whether p participates in the total phase order.
func (p Phase) Ordered() bool {
	return p > Unknown && p < phaseCount
}

// Observation is the result of one detection pass: exactly one phase
// plus a human-readable explanation of the first failing check.
type Observation struct {
	Phase  Phase
	Detail string
}

func (o Observation) String() string {
	return fmt.Sprintf("%s: %s", o.Phase, o.Detail)
}
