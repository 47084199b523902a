package crossnet

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
)

type CrossSectionID int

// CrossSection is a measurement and/or display point of the network.
//
// Location, Type and the link position are owned by the placement service and change only through it.
// Name and hard-shoulder flag may be filled in by a background metadata load and are safe to read concurrently
type CrossSection struct {
	ID       CrossSectionID
	Type     CrossSectionType
	Location orb.Point
	Lanes    int

	// Position on link graph. Valid for topology-aware simulators only
	LinkID NetworkLinkID
	Offset float64
	onLink bool

	meta *metadataState
}

type metadataState struct {
	sync.RWMutex
	name         string
	hardShoulder bool
	load         *MetadataLoad
}

func (cs *CrossSection) String() string {
	if cs.onLink {
		return fmt.Sprintf("CrossSection(%d, %s, link %d @ %.3f)", cs.ID, cs.Type, cs.LinkID, cs.Offset)
	}
	return fmt.Sprintf("CrossSection(%d, %s, [%f, %f])", cs.ID, cs.Type, cs.Location.X(), cs.Location.Y())
}

// Position returns link and offset of the cross section. The last value is false for flat simulators
func (cs *CrossSection) Position() (NetworkLinkID, float64, bool) {
	return cs.LinkID, cs.Offset, cs.onLink
}

func (cs *CrossSection) setPosition(linkID NetworkLinkID, offset float64) {
	cs.LinkID = linkID
	cs.Offset = offset
	cs.onLink = true
}

// Name returns assigned name. It may be empty while metadata is still being loaded
func (cs *CrossSection) Name() string {
	if cs.meta == nil {
		return ""
	}
	cs.meta.RLock()
	defer cs.meta.RUnlock()
	return cs.meta.name
}

// HardShoulder reports whether hard shoulder is available at the cross section
func (cs *CrossSection) HardShoulder() bool {
	if cs.meta == nil {
		return false
	}
	cs.meta.RLock()
	defer cs.meta.RUnlock()
	return cs.meta.hardShoulder
}

// MetadataReady is false while a background metadata load is in flight
func (cs *CrossSection) MetadataReady() bool {
	if cs.meta == nil {
		return true
	}
	cs.meta.RLock()
	load := cs.meta.load
	cs.meta.RUnlock()
	return load == nil || load.Ready()
}

func (cs *CrossSection) metadata() Metadata {
	if cs.meta == nil {
		return Metadata{}
	}
	cs.meta.RLock()
	defer cs.meta.RUnlock()
	return Metadata{Name: cs.meta.name, HardShoulder: cs.meta.hardShoulder}
}

func (cs *CrossSection) setMetadata(md Metadata) {
	cs.meta.Lock()
	cs.meta.name = md.Name
	cs.meta.hardShoulder = md.HardShoulder
	cs.meta.Unlock()
}

// adopt makes service-owned copy of the cross section reported by simulator
func adopt(record CrossSection) *CrossSection {
	cs := record
	cs.meta = &metadataState{}
	if record.meta != nil {
		md := record.metadata()
		cs.meta.name = md.Name
		cs.meta.hardShoulder = md.HardShoulder
	}
	return &cs
}
