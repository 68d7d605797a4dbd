package common

const (
	KEY_SYMBOL_STATS = "symbol_stats"
	KEY_APP_CONFIG   = "app_config:%s"

	KEY_LAST_SEND_SIGNAL = "last_send_signal:%s"
)

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)
