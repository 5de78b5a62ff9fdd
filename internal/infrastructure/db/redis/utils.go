package redisdb

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultNumOfRetries = 5

// parseConfig expects a redis client and, optionally, the number of retries
// used for WATCH transactions.
func parseConfig(config ...interface{}) (*redis.Client, int, error) {
	if len(config) < 1 || len(config) > 2 {
		return nil, 0, fmt.Errorf("invalid config")
	}
	rdb, ok := config[0].(*redis.Client)
	if !ok || rdb == nil {
		return nil, 0, fmt.Errorf("invalid redis client")
	}
	numOfRetries := defaultNumOfRetries
	if len(config) == 2 {
		n, ok := config[1].(int)
		if !ok {
			return nil, 0, fmt.Errorf("invalid number of retries")
		}
		if n > 0 {
			numOfRetries = n
		}
	}
	return rdb, numOfRetries, nil
}
