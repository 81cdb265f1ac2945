package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "campusface"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanRequestsRefresh - payload это scope (organization id), "*" - все сессии.
	RedisChanRequestsRefresh = RedisNamespace + ":requests:refresh"
)

// Ключи
const (
	// RedisKeyLockScheduledRefresh не дает нескольким консолям обновлять сессии одновременно.
	RedisKeyLockScheduledRefresh = RedisNamespace + ":lock:scheduled-refresh"
)
