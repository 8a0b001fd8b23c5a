package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/okian/pdmimport/internal/domain/model"
)

// ignored categories carry no clinical import value.
var ignored = map[model.Category]struct{}{
	model.CategoryBasalRate:         {},
	model.CategorySuggestedCalc:     {},
	model.CategoryTerminateBolus:    {},
	model.CategoryTimeChange:        {},
	model.CategoryDateChange:        {},
	model.CategoryRemoteHazardAlarm: {},
	model.CategoryResume:            {},
	model.CategorySuspend:           {},
	model.CategoryTerminateBasal:    {},
	model.CategoryEndMarker:         {},
	model.CategoryPumpAlarm:         {},
}

// Accept reports whether records of the category should be imported.
func Accept(c model.Category) bool {
	_, skip := ignored[c]
	return !skip
}

// commonDropped fields are removed from every record.
var commonDropped = []string{
	"error",
	"logType",
	"logIndex",
	"secondsSincePowerUp",
	"historyLogRecordType",
	"flags",
}

// rule describes the projection applied to one category.
type rule struct {
	dropped    []string
	dropIfZero []string
	marker     bool
}

var rules = map[model.Category]rule{
	model.CategoryBolus: {
		dropped:    []string{"calculationRecordOffset", "immediateDurationSeconds", "extended"},
		dropIfZero: []string{model.FieldExtendedDurationMinutes},
	},
	model.CategoryBloodGlucose: {
		dropped: []string{"errorCode", "userTag1", "userTag2", "bgFlags"},
	},
	model.CategoryCarb: {
		dropped: []string{"wasPreset", "presetType"},
	},
	model.CategoryActivate: {
		dropped: []string{"lotNumber", "serialNumber", "podVersion", "interlockVersion"},
		marker:  true,
	},
	model.CategoryDeactivate: {marker: true},
	model.CategoryDownload:   {marker: true},
}

// ruleFor looks up the rule for c regardless of case, matching how records
// are bucketed by their lowercased name.
func ruleFor(c model.Category) rule {
	return rules[model.Category(strings.ToUpper(string(c)))]
}

// DroppedFields returns every field name removed for the category.
func DroppedFields(c model.Category) []string {
	r := ruleFor(c)
	out := make([]string, 0, len(commonDropped)+len(r.dropped))
	out = append(out, commonDropped...)
	return append(out, r.dropped...)
}

// IsMarker reports whether records of the category are stamped with a type.
func IsMarker(c model.Category) bool {
	return ruleFor(c).marker
}

// IsZero follows loose equality with 0: numeric zero, "0", blank strings
// and false all count as zero. nil does not.
func IsZero(v any) bool {
	switch t := v.(type) {
	case int:
		return t == 0
	case int32:
		return t == 0
	case int64:
		return t == 0
	case float32:
		return t == 0
	case float64:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case bool:
		return !t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return true
		}
		f, err := strconv.ParseFloat(s, 64)
		return err == nil && f == 0
	default:
		return false
	}
}
