package paramstores

import (
	"bufio"
	"errors"
	"math/rand"
	"strconv"
	"strings"

	redis "github.com/mediocregopher/radix/v3"
	"github.com/mediocregopher/radix/v3/resp/resp2"

	"github.com/qvantel/synapse/internal/logger"
)

// Size of the connection pool used when talking to a single instance
const poolSize = 10

// RedisAdapter is the neural net param store implementation for Redis
type RedisAdapter struct {
	client   redis.Client
	sentinel *redis.Sentinel
}

// readClient returns a client for a random Redis instance, as reads can be handled by secondary replicas too
func (ra *RedisAdapter) readClient() (redis.Client, error) {
	if ra.sentinel == nil {
		return ra.client, nil
	}
	primary, secondaries := ra.sentinel.Addrs()
	addrs := append(secondaries, primary)
	return ra.sentinel.Client(addrs[rand.Intn(len(addrs))])
}

// writeClient returns a client for the primary Redis instance, as that's the only one that can handle writes
func (ra *RedisAdapter) writeClient() (redis.Client, error) {
	if ra.sentinel == nil {
		return ra.client, nil
	}
	primary, _ := ra.sentinel.Addrs()
	return ra.sentinel.Client(primary)
}

// NewRedisAdapter returns an initialized Redis param store object. The params must either contain the URL of a single
// instance or the group name and comma separated URLs of a sentinel setup
func NewRedisAdapter(conf map[string]interface{}) (*RedisAdapter, error) {
	if group, ok := conf["group"].(string); ok {
		urls, _ := conf["URLs"].(string)
		if urls == "" {
			return nil, errors.New("the Redis net param store requires URLs when a sentinel group is given")
		}
		sentinel, err := redis.NewSentinel(group, strings.Split(urls, ","))
		return &RedisAdapter{sentinel: sentinel}, err
	}
	url, ok := conf["URL"].(string)
	if !ok || url == "" {
		return nil, errors.New("the Redis net param store requires a URL")
	}
	pool, err := redis.NewPool("tcp", url, poolSize)
	return &RedisAdapter{client: pool}, err
}

// Delete can be used to delete the state of a specific neural net from Redis
func (ra *RedisAdapter) Delete(id string) error {
	var (
		value    int
		redisErr resp2.Error
	)
	client, err := ra.writeClient()
	if err != nil {
		return err
	}
	err = client.Do(redis.Cmd(&value, "DEL", toKey(id)))
	if errors.As(err, &redisErr) {
		logger.Error("Redis error returned while deleting net "+id, redisErr.E)
		return redisErr.E
	}
	return err
}

type scanResult struct {
	cur  int
	keys []string
}

// UnmarshalRESP is based on the private method with the same name in the radix library and needed here because said
// library doesn't provide a good interface for decoupled iteration (where the client of the API needs to know what the
// value of the cursor is) which means that we have to use the plain Cmd approach and parse the result ourselves
func (s *scanResult) UnmarshalRESP(br *bufio.Reader) error {
	var ah resp2.ArrayHeader
	err := ah.UnmarshalRESP(br)
	if err != nil {
		return err
	} else if ah.N != 2 {
		return errors.New("not enough parts returned")
	}

	var c resp2.BulkString
	if err := c.UnmarshalRESP(br); err != nil {
		return err
	}

	s.cur, err = strconv.Atoi(c.S)
	if err != nil {
		logger.Error("Error trying to convert cursor to int (raw: "+c.S+")", err)
		return err
	}
	s.keys = s.keys[:0]

	return (resp2.Any{I: &s.keys}).UnmarshalRESP(br)
}

// List can be used to page through the IDs of the nets that are stored in Redis by starting with offset 0 and then
// continuing to call the method with the updated cursor value it returns until it becomes 0. As with SCAN, a page can
// come back empty before the end is reached
func (ra *RedisAdapter) List(offset, limit int, pattern string) ([]string, int, error) {
	var (
		res      scanResult
		redisErr resp2.Error
	)
	client, err := ra.readClient()
	if err != nil {
		return nil, 0, err
	}
	args := []string{strconv.Itoa(offset), "MATCH", toKey(pattern)}
	if limit > 0 {
		args = append(args, "COUNT", strconv.Itoa(limit))
	}
	err = client.Do(redis.Cmd(&res, "SCAN", args...))
	if errors.As(err, &redisErr) {
		logger.Error("Redis error returned while listing nets", redisErr.E)
		return nil, 0, redisErr.E
	} else if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(res.keys))
	for _, key := range res.keys {
		if id, ok := fromKey(key); ok {
			ids = append(ids, id)
		}
	}
	return ids, res.cur, nil
}

// Load can be used to retrieve the state of a specific neural net from Redis
func (ra *RedisAdapter) Load(id string, np NetParams) (bool, error) {
	var (
		value    []byte
		redisErr resp2.Error
	)
	mn := redis.MaybeNil{Rcv: &value}
	client, err := ra.readClient()
	if err != nil {
		return false, err
	}
	err = client.Do(redis.Cmd(&mn, "GET", toKey(id)))
	if errors.As(err, &redisErr) {
		logger.Error("Redis error returned while loading net "+id, redisErr.E)
		return false, redisErr.E
	} else if err != nil {
		return false, err
	}
	if mn.Nil {
		return false, nil
	}
	return true, np.Unmarshal(value)
}

// Save can be used to upsert the state of a specific neural net to Redis
func (ra *RedisAdapter) Save(id string, np NetParams) error {
	value, err := np.Marshal()
	if err != nil {
		return err
	}
	client, err := ra.writeClient()
	if err != nil {
		return err
	}
	return client.Do(redis.FlatCmd(nil, "SET", toKey(id), value))
}
