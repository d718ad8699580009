// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package worker

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/swarm/actor"
	"github.com/gogpu/swarm/config"
	"github.com/gogpu/swarm/drawer"
	"github.com/gogpu/swarm/sprite"
	"github.com/gogpu/swarm/surface"
)

// Type identifies a message. The set is closed: receivers switch over every
// value and reject anything else.
type Type uint8

// Message types.
const (
	TypeSetup Type = iota + 1
	TypeUpdateCamera
	TypeUpdateDisplaySize
	TypeUpdatePartialActors
	TypeRequestDraw
	TypeDidDraw
)

// String returns the message type name.
func (t Type) String() string {
	switch t {
	case TypeSetup:
		return "Setup"
	case TypeUpdateCamera:
		return "UpdateCamera"
	case TypeUpdateDisplaySize:
		return "UpdateDisplaySize"
	case TypeUpdatePartialActors:
		return "UpdatePartialActors"
	case TypeRequestDraw:
		return "RequestDraw"
	case TypeDidDraw:
		return "DidDraw"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Message is one protocol message. Only the payload field matching Type is
// meaningful. Messages are values: nothing in a message is shared with the
// sender after it is posted.
type Message struct {
	Type Type

	Setup   *SetupPayload
	Camera  config.Camera
	Size    image.Point
	Patches map[int]actor.Patch

	// Bitmap and Stats are carried by DidDraw. Bitmap is nil unless the
	// worker relays bitmaps.
	Bitmap *image.RGBA
	Stats  drawer.Stats
}

// SetupPayload is everything a worker needs to build its drawer.
type SetupPayload struct {
	// Surface is owned by the worker from now on.
	Surface *surface.Surface

	Set *sprite.Set

	// Camera may be nil.
	Camera *config.Camera

	OnlyDrawChanges bool
	FrameType       config.FrameType
	BakeCamera      bool

	// Mode selects pull (RequestDraw) or push (own ticker) drawing.
	Mode config.WorkerMode

	// TickInterval is the push mode draw period.
	TickInterval time.Duration

	// Relay makes every DidDraw carry a copy of the surface.
	Relay bool

	// Actors is the worker's subset, in the order of Cells. Worker local
	// index k refers to Actors[k].
	Actors []actor.Actor
	Cells  []image.Point
}
