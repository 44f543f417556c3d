package sim

type Connections uint8

const (
	ConnTop Connections = 1 << iota
	ConnBottom
	ConnLeft
	ConnRight
)

func (c Connections) Has(side Connections) bool { return c&side == side }

type RoadStyle string

const (
	RoadEnd      RoadStyle = "end"
	RoadStraight RoadStyle = "straight"
	RoadCorner   RoadStyle = "corner"
	RoadThreeWay RoadStyle = "three-way"
	RoadFourWay  RoadStyle = "four-way"
)

// roadStyles maps each connection mask to a model and its rotation in degrees.
var roadStyles = map[Connections]struct {
	style    RoadStyle
	rotation int
}{
	ConnTop | ConnBottom | ConnLeft | ConnRight: {RoadFourWay, 0},
	ConnBottom | ConnLeft | ConnRight:           {RoadThreeWay, 0},
	ConnTop | ConnLeft | ConnRight:              {RoadThreeWay, 180},
	ConnTop | ConnBottom | ConnRight:            {RoadThreeWay, 90},
	ConnTop | ConnBottom | ConnLeft:             {RoadThreeWay, 270},
	ConnTop | ConnLeft:                          {RoadCorner, 180},
	ConnTop | ConnRight:                         {RoadCorner, 90},
	ConnBottom | ConnLeft:                       {RoadCorner, 270},
	ConnBottom | ConnRight:                      {RoadCorner, 0},
	ConnTop | ConnBottom:                        {RoadStraight, 0},
	ConnLeft | ConnRight:                        {RoadStraight, 90},
	ConnTop:                                     {RoadEnd, 180},
	ConnBottom:                                  {RoadEnd, 0},
	ConnLeft:                                    {RoadEnd, 270},
	ConnRight:                                   {RoadEnd, 90},
}

// RoadStyle returns the road model and rotation for the current connections.
// An isolated road is drawn straight. Non-road buildings return "".
func (b *Building) RoadStyle() (RoadStyle, int) {
	if b.typ != Road {
		return "", 0
	}
	if s, ok := roadStyles[b.connections]; ok {
		return s.style, s.rotation
	}
	return RoadStraight, 0
}
