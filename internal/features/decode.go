package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// rawFeatureSet mirrors FeatureSet with pointer fields so that an absent
// field can be told apart from its zero value.
type rawFeatureSet struct {
	DayMaster        *string        `json:"day_master"`
	DayMasterElement *string        `json:"day_master_element"`
	StrongSelf       *bool          `json:"is_strong_self"`
	StrongElements   *[]string      `json:"strong_elements"`
	WeakElements     *[]string      `json:"weak_elements"`
	TenGodsCount     map[string]int `json:"ten_gods_count"`
	DominantTenGod   *string        `json:"dominant_ten_god"`
	Structure        *string        `json:"structure"`
	TargetYear       *int           `json:"timing_year"`
	FavorableYear    *bool          `json:"is_favorable_year"`
	Goals            []string       `json:"goals"`
}

// Decode reads one JSON feature set, failing on absent required fields or
// wrong types rather than substituting defaults. Unknown fields are ignored
// so upstream producers may send extra diagnostics.
func Decode(r io.Reader) (FeatureSet, error) {
	var raw rawFeatureSet
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return FeatureSet{}, &ValidationError{Fields: []FieldError{{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
			}}}
		}
		return FeatureSet{}, fmt.Errorf("decode feature set: %w", err)
	}

	var errs ValidationError
	var fs FeatureSet
	str := func(field string, p *string, dst *string) {
		if p == nil {
			errs.add(field, "missing")
			return
		}
		*dst = *p
	}
	str("day_master", raw.DayMaster, &fs.DayMaster)
	str("day_master_element", raw.DayMasterElement, &fs.DayMasterElement)
	str("dominant_ten_god", raw.DominantTenGod, &fs.DominantTenGod)
	str("structure", raw.Structure, &fs.Structure)

	if raw.StrongSelf == nil {
		errs.add("is_strong_self", "missing")
	} else {
		fs.StrongSelf = *raw.StrongSelf
	}
	if raw.FavorableYear == nil {
		errs.add("is_favorable_year", "missing")
	} else {
		fs.FavorableYear = *raw.FavorableYear
	}
	if raw.TargetYear == nil {
		errs.add("timing_year", "missing")
	} else {
		fs.TargetYear = *raw.TargetYear
	}
	if raw.StrongElements == nil {
		errs.add("strong_elements", "missing")
	} else {
		fs.StrongElements = *raw.StrongElements
	}
	if raw.WeakElements == nil {
		errs.add("weak_elements", "missing")
	} else {
		fs.WeakElements = *raw.WeakElements
	}
	fs.TenGodsCount = raw.TenGodsCount
	fs.Goals = raw.Goals

	if len(errs.Fields) > 0 {
		return FeatureSet{}, &errs
	}
	if err := fs.Validate(); err != nil {
		return FeatureSet{}, err
	}
	return fs, nil
}

// DecodeMap decodes a generic map, as carried by RPC payloads.
func DecodeMap(m map[string]any) (FeatureSet, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return FeatureSet{}, fmt.Errorf("encode feature map: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// ToMap converts fs into the generic map form used on the wire.
func (f FeatureSet) ToMap() (map[string]any, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode feature set: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode feature map: %w", err)
	}
	// A nil list is an empty list, not an absent field.
	for _, k := range []string{"strong_elements", "weak_elements"} {
		if m[k] == nil {
			m[k] = []any{}
		}
	}
	return m, nil
}
