// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package traffic

import (
	"fmt"
	"strings"
)

// JobState is the remote-side state of a Traffic Stats job.
//
// Documentation: https://developer.tomtom.com/traffic-stats/documentation/api/route-analysis#job-status-flow
type JobState string

const (
	StateNew              JobState = "NEW"
	StateScheduled        JobState = "SCHEDULED"
	StateMapmatching      JobState = "MAPMATCHING"
	StateMapmatched       JobState = "MAPMATCHED"
	StateReadingGeobase   JobState = "READING_GEOBASE"
	StateCalculations     JobState = "CALCULATIONS"
	StateNeedConfirmation JobState = "NEED_CONFIRMATION"
	StateDone             JobState = "DONE"
	StateError            JobState = "ERROR"
	StateRejected         JobState = "REJECTED"
	StateCanceled         JobState = "CANCELED"
	StateExpired          JobState = "EXPIRED"
)

// AllJobStates lists every remote job state, in lifecycle order.
var AllJobStates = []JobState{
	StateNew, StateScheduled, StateMapmatching, StateMapmatched,
	StateReadingGeobase, StateCalculations, StateNeedConfirmation,
	StateDone, StateError, StateRejected, StateCanceled, StateExpired,
}

// ActiveJobStates are the states counted against the remote concurrency cap.
var ActiveJobStates = []JobState{
	StateNew, StateScheduled, StateMapmatching,
	StateMapmatched, StateReadingGeobase, StateCalculations,
}

// ParseJobState converts a string into a JobState, ignoring case.
func ParseJobState(s string) (JobState, error) {
	state := JobState(strings.ToUpper(s))
	for _, known := range AllJobStates {
		if state == known {
			return state, nil
		}
	}
	return "", fmt.Errorf("invalid job state %q", s)
}

// IsActive reports whether the state counts against the concurrency cap.
func (s JobState) IsActive() bool {
	for _, active := range ActiveJobStates {
		if s == active {
			return true
		}
	}
	return false
}

// ReportType selects the submission endpoint for a job payload.
type ReportType string

const (
	RouteAnalysis  ReportType = "routeanalysis"
	AreaAnalysis   ReportType = "areaanalysis"
	TrafficDensity ReportType = "trafficdensity"
)

// AllReportTypes lists the supported report types.
var AllReportTypes = []ReportType{RouteAnalysis, AreaAnalysis, TrafficDensity}

// ParseReportType converts a string into a ReportType, ignoring case.
func ParseReportType(s string) (ReportType, error) {
	rt := ReportType(strings.ToLower(s))
	for _, known := range AllReportTypes {
		if rt == known {
			return rt, nil
		}
	}
	return "", fmt.Errorf("invalid report type %q", s)
}
