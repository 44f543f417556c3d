package server

import "citysim/engine/internal/sim"

// Event names sent to clients.
const (
	EventFullState      = "full_state"
	EventTick           = "tick"
	EventBuildingUpdate = "building_update"
	EventBuildingPlaced = "building_placed"
	EventBulldozed      = "bulldozed"
	EventRoadChanged    = "road_changed"
	EventAnimation      = "animation"
	EventRejected       = "rejected"
)

// Client -> server actions.
const (
	ActionPlaceBuilding = "place_building"
	ActionBulldoze      = "bulldoze"
)

type PlaceBuildingPayload struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

type BulldozePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BuildingUpdate carries the current state of a tile; Building is nil when the
// tile is empty.
type BuildingUpdate struct {
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Building *sim.BuildingView `json:"building"`
}

type AnimationEvent struct {
	X          int            `json:"x"`
	Y          int            `json:"y"`
	BuildingID sim.BuildingID `json:"buildingId"`
	Animation  sim.Animation  `json:"animation"`
}

// RoadChangedEvent reports a placed road, or a removed one when Road is nil.
type RoadChangedEvent struct {
	X    int               `json:"x"`
	Y    int               `json:"y"`
	Road *sim.BuildingView `json:"road"`
}

type RejectedEvent struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}
