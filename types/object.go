package types

// ObjectID identifies an object independent of its version.
type ObjectID = Digest

// Version is a monotonically increasing sequence number for an object.
type Version uint64

// ObjectRef pins an object at a specific version with its content
// digest: (ObjectID, Version, ContentDigest) as a triple, an object at
// a given version is uniquely identified by its ref.
type ObjectRef struct {
	ID      ObjectID
	Version Version
	Digest  Digest
}

// Less orders ObjectRefs by descending version, so a slice sorted with
// this comparator has the highest version first. Refs to different
// objects are never less than one another.
func (r ObjectRef) Less(o ObjectRef) bool {
	if r.ID != o.ID {
		return false // only meaningful to compare refs to the same object
	}
	return r.Version > o.Version
}
