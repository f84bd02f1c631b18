package bachome

// BACnet application tags the device cares about. The directory only records
// access mode, so writers have to say which encoding the object expects.
const (
	TagUnsigned uint8 = 2
	TagReal     uint8 = 4
)

// PresentValue is a scalar tagged for the wire.
type PresentValue struct {
	Tag   uint8
	Value float64
}

// PresentValueClient is the boundary to the BACnet stack. Both calls are one
// network round trip bounded by the stack's own timeout; neither retries.
// Write returns the value the device accepted, normally an echo of the input.
type PresentValueClient interface {
	ReadPresentValue(addr string, ref ObjectReference) (float64, error)
	WritePresentValue(addr string, ref ObjectReference, pv PresentValue) (float64, error)
}
