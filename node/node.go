// Package node connects the transformer to the bus: it listens for batches in
// the world frame and publishes them in the robot base frame.
package node

import (
	"fmt"

	"github.com/roboticeyes/worldtobase/bus"
	"github.com/roboticeyes/worldtobase/event"
	"github.com/roboticeyes/worldtobase/mocap"
	"github.com/roboticeyes/worldtobase/params"
)

var log = event.Log

// Bus is the part of the message bus used by the node
type Bus interface {
	Subscribe(topic string, handler bus.Handler) func()
	Publish(topic string, batch mocap.RigidBodyArray)
}

// WorldToBase is the running world to base node
type WorldToBase struct {
	store       params.Store
	bus         Bus
	transformer mocap.Transformer
	subTopic    string
	pubTopic    string
	cancel      func()
}

// NewWorldToBase subscribes to the topic named by the sub_topic parameter and
// publishes on pub_topic. Topic names are read once here; every other
// parameter is read again for each batch. Both topics must differ, otherwise
// the node would consume its own output.
func NewWorldToBase(store params.Store, b Bus) (*WorldToBase, error) {
	p := store.Snapshot()
	if p.SubTopic == p.PubTopic {
		log.WithFields(event.Fields{
			"topic": p.SubTopic,
		}).Error("Subscription and publication topic are the same")
		return nil, fmt.Errorf("sub_topic and pub_topic are both %q", p.SubTopic)
	}
	n := &WorldToBase{
		store:    store,
		bus:      b,
		subTopic: p.SubTopic,
		pubTopic: p.PubTopic,
	}
	n.cancel = b.Subscribe(n.subTopic, n.handle)

	log.WithFields(event.Fields{
		"sub_topic": n.subTopic,
		"pub_topic": n.pubTopic,
	}).Info("Created world to base node")
	return n, nil
}

func (n *WorldToBase) handle(batch mocap.RigidBodyArray) {
	p := n.store.Snapshot()
	log.Debugf("Base ID: %d", p.BaseID)

	res := n.transformer.Transform(batch, p.Calibration())
	n.bus.Publish(n.pubTopic, res.Batch)
}

// SubTopic returns the topic the node listens on
func (n *WorldToBase) SubTopic() string {
	return n.subTopic
}

// PubTopic returns the topic the node publishes on
func (n *WorldToBase) PubTopic() string {
	return n.pubTopic
}

// Close stops listening for batches
func (n *WorldToBase) Close() {
	n.cancel()
}
