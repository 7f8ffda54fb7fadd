package features

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// #region feature-set
// FeatureSet is the derived description of one subject. It is read-only
// input to matching and is never mutated.
type FeatureSet struct {
	DayMaster        string         `json:"day_master"`
	DayMasterElement string         `json:"day_master_element"`
	StrongSelf       bool           `json:"is_strong_self"`
	StrongElements   []string       `json:"strong_elements"`
	WeakElements     []string       `json:"weak_elements"`
	TenGodsCount     map[string]int `json:"ten_gods_count,omitempty"`
	DominantTenGod   string         `json:"dominant_ten_god"`
	Structure        string         `json:"structure"`
	TargetYear       int            `json:"timing_year"`
	FavorableYear    bool           `json:"is_favorable_year"`
	Goals            []string       `json:"goals,omitempty"`
}

// Year bounds accepted for the target evaluation year.
const (
	MinTargetYear = 1900
	MaxTargetYear = 2200
)

// Strength tokens added to the matching token set.
const (
	TokenStrong = "신강"
	TokenWeak   = "신약"
)

// #endregion feature-set

// #region validate
// Validate checks the structural contract. All problems are reported
// together so the caller can fix the input in one pass.
func (f FeatureSet) Validate() error {
	var errs ValidationError

	requireString := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			errs.add(field, "must be set")
		}
	}
	requireString("day_master", f.DayMaster)
	requireString("day_master_element", f.DayMasterElement)
	requireString("dominant_ten_god", f.DominantTenGod)
	requireString("structure", f.Structure)

	checkList := func(field string, list []string) {
		for i, v := range list {
			if strings.TrimSpace(v) == "" {
				errs.add(fmt.Sprintf("%s[%d]", field, i), "must not be blank")
			}
		}
	}
	checkList("strong_elements", f.StrongElements)
	checkList("weak_elements", f.WeakElements)
	checkList("goals", f.Goals)

	names := make([]string, 0, len(f.TenGodsCount))
	for name := range f.TenGodsCount {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n := f.TenGodsCount[name]
		if strings.TrimSpace(name) == "" {
			errs.add("ten_gods_count", "contains a blank category")
		}
		if n < 0 {
			errs.add("ten_gods_count."+name, "must not be negative")
		}
	}
	if len(f.TenGodsCount) > 0 && f.DominantTenGod != "" {
		if _, ok := f.TenGodsCount[f.DominantTenGod]; !ok {
			errs.add("dominant_ten_god", fmt.Sprintf("%q not present in ten_gods_count", f.DominantTenGod))
		}
	}

	if f.TargetYear < MinTargetYear || f.TargetYear > MaxTargetYear {
		errs.add("timing_year", fmt.Sprintf("%d outside [%d, %d]", f.TargetYear, MinTargetYear, MaxTargetYear))
	}

	return errs.orNil()
}

// #endregion validate

// #region context-hash
// ContextHash is a stable digest of the feature set, used to correlate
// stored requests with identical inputs.
func (f FeatureSet) ContextHash() string {
	data, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// #endregion context-hash
