package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Horizons           []*horizonBlock          `hcl:"horizon,block"`
	Elements           []*elementBlock          `hcl:"element,block"`
	Connections        []*connectionBlock       `hcl:"connection,block"`
	SectionedBatteries []*sectionedBatteryBlock `hcl:"sectioned_battery,block"`
	Remain             hcl.Body                 `hcl:",remain"`
}

type horizonBlock struct {
	Durations  []float64 `hcl:"durations,optional"`
	Periods    int       `hcl:"periods,optional"`
	Resolution float64   `hcl:"resolution,optional"`
}

type elementBlock struct {
	Kind   string   `hcl:"kind,label"`
	Name   string   `hcl:"name,label"`
	Params hcl.Body `hcl:",remain"`
}

type connectionBlock struct {
	Name     string          `hcl:"name,label"`
	Source   string          `hcl:"source"`
	Target   string          `hcl:"target"`
	Segments []*segmentBlock `hcl:"segment,block"`
}

type segmentBlock struct {
	Name   string   `hcl:"name,label"`
	Kind   string   `hcl:"kind"`
	Params hcl.Body `hcl:",remain"`
}

type sectionedBatteryBlock struct {
	Name         string          `hcl:"name,label"`
	SlackPenalty *float64        `hcl:"slack_penalty,optional"`
	Inverter     *paramsBlock    `hcl:"inverter,block"`
	Efficiency   *paramsBlock    `hcl:"efficiency,block"`
	Sections     []*sectionBlock `hcl:"section,block"`
}

type sectionBlock struct {
	Name    string       `hcl:"name,label"`
	Pricing *paramsBlock `hcl:"pricing,block"`
	Params  hcl.Body     `hcl:",remain"`
}

type paramsBlock struct {
	Params hcl.Body `hcl:",remain"`
}
