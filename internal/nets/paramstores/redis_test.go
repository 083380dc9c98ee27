//go:build integration

package paramstores

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/qvantel/synapse/internal/config"
	"github.com/qvantel/synapse/internal/nets"
)

var testRedisStore NetParamStore

func getTestStore(url string) (NetParamStore, error) {
	conf := config.Config{
		ML: config.MLParams{
			StoreType:   config.RedisParamStore,
			StoreParams: map[string]interface{}{"URL": url},
		},
	}
	return New(conf)
}

func startRedis(ctx context.Context) (redis testcontainers.Container, url string, err error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:6.0.10-alpine3.13",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	redis, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}
	endpoint, err := redis.Endpoint(ctx, "")
	if err != nil {
		return nil, "", err
	}
	return redis, endpoint, nil
}

func TestList(t *testing.T) {
	if err := initTest(testRedisStore, t.Name()); err != nil {
		t.Fatalf("Failed to initialize net param store (%s)", err.Error())
	}
	defer testRedisStore.Delete(t.Name())

	ids, err := listAll(testRedisStore, 10, "*")
	if err != nil {
		t.Fatalf("Failed to list nets (%s)", err.Error())
	}
	if len(ids) != 1 {
		t.Fatalf("Expected List to return one ID, got %d instead", len(ids))
	}
	if ids[0] != t.Name() {
		t.Fatalf("Expected List to return ID %s, got %s instead", t.Name(), ids[0])
	}
}

func TestLoad(t *testing.T) {
	if err := initTest(testRedisStore, t.Name()); err != nil {
		t.Fatalf("Failed to initialize net param store (%s)", err.Error())
	}

	var params nets.Params
	found, err := testRedisStore.Load(t.Name(), &params)
	if err != nil {
		t.Fatalf("Failed to load net params from store (%s)", err.Error())
	}
	if !found {
		t.Fatal("Failed to find existing net")
	}
	if params.Epochs != 10 {
		t.Errorf("Incorrect epochs for retrieved params, expected 10, got %d", params.Epochs)
	}

	if err := testRedisStore.Delete(t.Name()); err != nil {
		t.Fatalf("Failed to delete net params (%s)", err.Error())
	}
	found, err = testRedisStore.Load(t.Name(), &params)
	if err != nil {
		t.Fatalf("Failed to load net params from store (%s)", err.Error())
	}
	if found {
		t.Error("Found deleted net")
	}
}

func TestMain(m *testing.M) {
	// Setup
	ctx := context.Background()
	redis, url, err := startRedis(ctx)
	if err != nil {
		fmt.Printf("Error starting test Redis container (%s)", err.Error())
		os.Exit(1)
	}
	testRedisStore, err = getTestStore(url)
	if err != nil {
		fmt.Printf("Failed to get net param store (%s)", err.Error())
		os.Exit(1)
	}
	// Run
	code := m.Run()
	// Teardown
	redis.Terminate(ctx)
	os.Exit(code)
}
