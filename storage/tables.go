package storage

// Physical table names. These are part of the compatibility surface shared
// with other implementations of the same store.
const (
	JobDetailTable    = "JobDetail"
	TriggerTable      = "Trigger"
	TriggerGroupTable = "TriggerGroup"
	CalendarTable     = "Calendar"
	SchedulerTable    = "Scheduler"
)

// TableDef describes a table and its primary-key attributes.
type TableDef struct {
	Name     string
	KeyAttrs []string
}

// Tables lists every table the job store uses, in bootstrap order.
var Tables = []TableDef{
	{Name: JobDetailTable, KeyAttrs: []string{"Name", "Group"}},
	{Name: TriggerTable, KeyAttrs: []string{"Name", "Group"}},
	{Name: TriggerGroupTable, KeyAttrs: []string{"Name"}},
	{Name: CalendarTable, KeyAttrs: []string{"Name"}},
	{Name: SchedulerTable, KeyAttrs: []string{"InstanceId"}},
}
