package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Inbound email polling, every 2 minutes per pipeline
	CronSchedulePollInbound string `env:"CRON_SCHEDULE_POLL_INBOUND" envDefault:"0 */2 * * * *"`
}
