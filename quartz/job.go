package quartz

import (
	"encoding/json"

	"github.com/lukeryannetnz/quartz-dynamo/errors"
)

// JobDataMap carries string-keyed scalar values alongside a job or trigger.
type JobDataMap map[string]any

// Clone returns a shallow copy. Values are scalars, so shallow is deep.
func (m JobDataMap) Clone() JobDataMap {
	if m == nil {
		return nil
	}
	out := make(JobDataMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MarshalJobDataMap encodes a data map as a JSON string for storage. A nil
// or empty map encodes as "".
func MarshalJobDataMap(m JobDataMap) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal job data map")
	}
	return string(data), nil
}

// UnmarshalJobDataMap decodes a stored JSON string into a data map.
func UnmarshalJobDataMap(data string) (JobDataMap, error) {
	if data == "" {
		return nil, nil
	}
	var m JobDataMap
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal job data map")
	}
	return m, nil
}

// JobDetail is the definition of a unit of work referenced by triggers.
type JobDetail struct {
	Key         JobKey
	JobType     string // reference to the executable job implementation
	Description string
	Durable     bool // a durable job survives with no triggers
	Data        JobDataMap
}

// Clone returns a deep copy.
func (j *JobDetail) Clone() *JobDetail {
	if j == nil {
		return nil
	}
	out := *j
	out.Data = j.Data.Clone()
	return &out
}
