package jobstore

import (
	"github.com/lukeryannetnz/quartz-dynamo/quartz"
	"github.com/lukeryannetnz/quartz-dynamo/storage"
)

// StoredJob wraps a job detail for persistence.
type StoredJob struct {
	Job *quartz.JobDetail
}

// NewStoredJob wraps a job detail.
func NewStoredJob(job *quartz.JobDetail) *StoredJob {
	return &StoredJob{Job: job}
}

// MarshalRecord encodes the job. Field names are part of the compatibility
// surface.
func (s *StoredJob) MarshalRecord() (storage.Record, error) {
	data, err := quartz.MarshalJobDataMap(s.Job.Data)
	if err != nil {
		return storage.Record{}, err
	}

	var rec storage.Record
	rec.Set("Name", storage.String(s.Job.Key.Name))
	rec.Set("Group", storage.String(s.Job.Key.Group))
	rec.Set("JobType", storage.String(s.Job.JobType))
	rec.Set("Description", storage.String(s.Job.Description))
	rec.Set("Durable", storage.Bool(s.Job.Durable))
	rec.Set("JobDataMap", storage.String(data))
	return rec, nil
}

// UnmarshalRecord decodes a stored job.
func (s *StoredJob) UnmarshalRecord(rec storage.Record) error {
	data, err := quartz.UnmarshalJobDataMap(rec.GetString("JobDataMap"))
	if err != nil {
		return err
	}

	s.Job = &quartz.JobDetail{
		Key: quartz.JobKey{
			Name:  rec.GetString("Name"),
			Group: rec.GetString("Group"),
		},
		JobType:     rec.GetString("JobType"),
		Description: rec.GetString("Description"),
		Durable:     rec.GetBool("Durable"),
		Data:        data,
	}
	return nil
}

// KeyRecord returns the primary key record.
func (s *StoredJob) KeyRecord() storage.Record {
	return jobKeyRecord(s.Job.Key)
}

func jobKeyRecord(key quartz.JobKey) storage.Record {
	var rec storage.Record
	rec.Set("Name", storage.String(key.Name))
	rec.Set("Group", storage.String(key.Group))
	return rec
}
