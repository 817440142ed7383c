package types

// DescriptorLength is the fixed length of the face descriptors produced by
// the detector sidecar.  Enrollment rejects descriptors of any other length.
const DescriptorLength = 128

// Descriptor is a fixed-length face embedding.
type Descriptor []float32

// Identity is an enrolled person.  Immutable once created except by explicit
// re-enrollment; never deleted in the modeled flows.
type Identity struct {
	EmployeeCode string     `json:"employee_code"`
	Name         string     `json:"name"`
	NationalID   string     `json:"national_id"`
	AccessLevel  int        `json:"access_level"`
	Shift        string     `json:"shift,omitempty"` // assigned shift name; empty = unassigned
	Descriptor   Descriptor `json:"descriptor"`
	PhotoRef     string     `json:"photo_ref,omitempty"`
}

// HasDescriptor reports whether the identity carries a usable descriptor.
func (i Identity) HasDescriptor() bool {
	return len(i.Descriptor) == DescriptorLength
}
