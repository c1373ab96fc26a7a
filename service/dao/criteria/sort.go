package criteria

import (
	"sort"

	"github.com/viant/attention/model"
)

func sortStates(states []*model.State, descending bool) {
	sort.SliceStable(states, func(i, j int) bool {
		if descending {
			return states[i].Timestamp.After(states[j].Timestamp)
		}
		return states[i].Timestamp.Before(states[j].Timestamp)
	})
}
