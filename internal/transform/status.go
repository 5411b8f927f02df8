package transform

import (
	"fmt"

	"github.com/deskbridge/backend/internal/models"
)

// UnknownStatusError reports a Halo status id outside the fixed lookup
// table, or a status string no backend knows.
type UnknownStatusError struct {
	ID     int64
	Status string
}

func (e *UnknownStatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unknown ticket status %q", e.Status)
	}
	return fmt.Sprintf("unknown halo status id %d", e.ID)
}

// Halo status ids collapse onto the four canonical statuses: on-hold joins
// pending and solved joins closed. The reverse direction is exact.
var haloStatusIDs = map[int64]models.Status{
	1:  models.StatusNew,
	2:  models.StatusOpen,
	3:  models.StatusPending,
	28: models.StatusPending,
	18: models.StatusClosed,
	9:  models.StatusClosed,
}

var statusToHaloID = map[models.Status]int64{
	models.StatusNew:     1,
	models.StatusOpen:    2,
	models.StatusPending: 3,
	models.StatusClosed:  9,
}

func StatusFromHaloID(id int64) (models.Status, error) {
	s, ok := haloStatusIDs[id]
	if !ok {
		return "", &UnknownStatusError{ID: id}
	}
	return s, nil
}

func StatusToHaloID(s models.Status) (int64, error) {
	id, ok := statusToHaloID[s]
	if !ok {
		return 0, &UnknownStatusError{Status: string(s)}
	}
	return id, nil
}

// Halo ticket type ids. Incidents sit on the 1..4 priority scale; every
// other type uses the 5..8 scale.
var ticketTypeIDs = map[models.TicketType]int64{
	models.TypeIncident: 1,
	models.TypeProblem:  2,
	models.TypeQuestion: 3,
	models.TypeTask:     4,
}

const haloTypeIncident = 1

var incidentPriorityIDs = map[models.Priority]int64{
	models.PriorityUrgent: 1,
	models.PriorityHigh:   2,
	models.PriorityNormal: 3,
	models.PriorityLow:    4,
}

var requestPriorityIDs = map[models.Priority]int64{
	models.PriorityUrgent: 5,
	models.PriorityHigh:   6,
	models.PriorityNormal: 7,
	models.PriorityLow:    8,
}

func TicketTypeToHaloID(t models.TicketType) int64 {
	return ticketTypeIDs[t]
}

func TicketTypeFromHaloID(id int64) models.TicketType {
	for t, typeID := range ticketTypeIDs {
		if typeID == id {
			return t
		}
	}
	return ""
}

func PriorityToHaloID(p models.Priority, t models.TicketType) int64 {
	scale := requestPriorityIDs
	if t == models.TypeIncident {
		scale = incidentPriorityIDs
	}
	return scale[p]
}

// PriorityFromHaloIDs maps a Halo priority id back to the canonical
// priority, picking the scale from the ticket type. Priority is advisory,
// so an id off either scale falls back to normal instead of erroring.
func PriorityFromHaloIDs(priorityID, ticketTypeID int64) models.Priority {
	scale := requestPriorityIDs
	if ticketTypeID == haloTypeIncident {
		scale = incidentPriorityIDs
	}
	for p, id := range scale {
		if id == priorityID {
			return p
		}
	}
	if priorityID == 0 {
		return ""
	}
	return models.PriorityNormal
}
