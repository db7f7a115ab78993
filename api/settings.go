package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"forecast-dashboard/dashboard"
	"forecast-dashboard/dates"
	"forecast-dashboard/models"
)

// ErrInvalidSetting is returned for a setting value that cannot be applied
var ErrInvalidSetting = errors.New("invalid setting")

// settingOrder applies location and target before the settings that depend
// on the data they select
var settingOrder = []string{
	models.ParamLocation,
	models.ParamTarget,
	models.ParamPredictionInterval,
	models.ParamYScale,
	models.ParamYValue,
	models.ParamDisplayMode,
	models.ParamWeeksShown,
	models.ParamWeeksAhead,
	models.ParamForecastDate,
	models.ParamVisibleModels,
}

// ApplySettings changes the dashboard settings named in patch. Keys are URL
// parameter names; a JSON null clears the override of that setting. Every
// entry is checked before any is applied, so a rejected patch changes nothing.
func ApplySettings(d *dashboard.Dashboard, patch map[string]json.RawMessage) error {
	for key := range patch {
		if !knownSetting(key) {
			return fmt.Errorf("%w: unknown setting %q", ErrInvalidSetting, key)
		}
	}

	changes := make([]dashboard.Change, 0, len(patch))
	for _, name := range settingOrder {
		raw, present := patch[name]
		if !present {
			continue
		}
		if string(raw) == "null" {
			changes = append(changes, dashboard.ResetSetting(name))
			continue
		}
		change, err := parseSetting(name, raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSetting, name, err)
		}
		changes = append(changes, change)
	}

	if err := d.Apply(changes...); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return nil
}

func knownSetting(name string) bool {
	for _, known := range settingOrder {
		if name == known {
			return true
		}
	}
	return false
}

// parseSetting decodes one JSON value into a change of the named setting
func parseSetting(name string, raw json.RawMessage) (dashboard.Change, error) {
	if name == models.ParamVisibleModels {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return dashboard.Change{}, err
		}
		return dashboard.SetVisibleModels(names), nil
	}

	if name == models.ParamWeeksShown || name == models.ParamWeeksAhead {
		var weeks models.Weeks
		if err := json.Unmarshal(raw, &weeks); err != nil {
			return dashboard.Change{}, err
		}
		if name == models.ParamWeeksShown {
			return dashboard.SetWeeksShown(weeks), nil
		}
		return dashboard.SetWeeksAhead(weeks), nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return dashboard.Change{}, err
	}

	switch name {
	case models.ParamLocation:
		return dashboard.SetLocation(value), nil
	case models.ParamTarget:
		target, ok := models.ParseForecastTarget(value)
		if !ok {
			return dashboard.Change{}, fmt.Errorf("unknown target %q", value)
		}
		return dashboard.SetTarget(target), nil
	case models.ParamPredictionInterval:
		q, ok := models.MapURLToQuantileType(value)
		if !ok {
			return dashboard.Change{}, fmt.Errorf("unknown interval %q", value)
		}
		return dashboard.SetConfidenceInterval(q), nil
	case models.ParamYScale:
		scale, ok := models.ParseYScale(value)
		if !ok {
			return dashboard.Change{}, fmt.Errorf("unknown y scale %q", value)
		}
		return dashboard.SetYScale(scale), nil
	case models.ParamYValue:
		yValue, ok := models.ParseYValue(value)
		if !ok {
			return dashboard.Change{}, fmt.Errorf("unknown y value %q", value)
		}
		return dashboard.SetYValue(yValue), nil
	case models.ParamDisplayMode:
		kind, ok := models.ParseDisplayModeKind(value)
		if !ok {
			return dashboard.Change{}, fmt.Errorf("unknown display mode %q", value)
		}
		return dashboard.SetDisplayMode(kind), nil
	case models.ParamForecastDate:
		date, ok := dates.ParseISO(value)
		if !ok {
			return dashboard.Change{}, fmt.Errorf("invalid date %q", value)
		}
		return dashboard.SetForecastDate(date), nil
	}
	return dashboard.Change{}, fmt.Errorf("unknown setting %q", name)
}

func (s *Server) handlePatchSettings(c *gin.Context, session *Session) {
	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d := session.Dashboard
	if err := ApplySettings(d, patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "query": d.Query()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": d.Query()})
}
