package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/qvantel/synapse/api/types"
	"github.com/qvantel/synapse/internal/datasets"
	"github.com/qvantel/synapse/pkg/producer"
)

func main() {
	// Get arguments
	var (
		batchSize, epochs, inN         int
		headers                        bool
		pc                             producer.Config
		datasetID, netID, sep, targets string
	)
	flag.IntVar(&batchSize, "batch", 10, "Maximum number of samples to bundle in a single update")
	flag.IntVar(&epochs, "epochs", 0, "Epoch cap for the training request, the service default is used when 0")
	flag.IntVar(&inN, "in", 1, "Number of inputs, counted left to right, all others will be considered targets")
	flag.BoolVar(&headers, "headers", false, "If true, the first line will be skipped")
	flag.DurationVar(&pc.Timeout, "timeout", 15*time.Second, "Maximum time to wait for the production of a message")
	flag.StringVar(&pc.Topic, "topic", "synapse-samples", "Where to produce the messages when using Kafka")
	flag.StringVar(&pc.Type, "producer", "rest", "What producer to use. Supported values are rest and kafka")
	flag.StringVar(&sep, "sep", " ", "String sequence that denotes the end of one field and the start of the next")
	flag.StringVar(&datasetID, "dataset", "", "ID of the dataset that these samples belong to")
	flag.StringVar(&netID, "net", "", "If set, this net will be trained with the whole dataset once every sample is sent")
	flag.StringVar(
		&targets,
		"targets",
		"",
		"Comma separated list of protocol://host:port for synapse instances when using rest, host:port of Kafka brokers when using kafka",
	)
	flag.Parse()

	// Check arguments
	path := flag.Arg(0)
	if path == "" {
		fmt.Println("ERROR: No file path specified")
		os.Exit(1)
	}
	if datasetID == "" {
		fmt.Println("ERROR: No dataset specified")
		os.Exit(1)
	}
	if targets == "" {
		fmt.Println("ERROR: No targets specified")
		os.Exit(1)
	}
	if batchSize < 1 || inN < 1 {
		fmt.Println("ERROR: batch and in must be positive")
		os.Exit(1)
	}

	// Initialize producer
	pc.Addresses = strings.Split(targets, ",")
	p, err := producer.New(pc)
	if err != nil {
		fmt.Println("ERROR: Failed to start producer (" + err.Error() + ")")
		os.Exit(1)
	}
	defer p.Close()
	fmt.Println(pc.Type + " producer initialized with targets: " + targets)

	// Initialize collector
	out := make(chan types.Sample, 10)
	fc := NewFileCollector(headers, inN, out, path, sep)
	fmt.Println("file collector created for path: " + path)

	// The last batch is held back so the training request can go with it
	batch := []types.Sample{}
	sent := 0
	go fc.Collect()
	fmt.Println("collection started")
	for sample := range out {
		if len(batch) == batchSize {
			err = send(p, path, &types.SamplesUpdate{DatasetID: datasetID, Samples: batch})
			if err != nil {
				fmt.Println("ERROR: " + err.Error())
				os.Exit(1)
			}
			sent += len(batch)
			batch = []types.Sample{}
		}
		batch = append(batch, sample)
	}
	if fc.Err() != nil {
		fmt.Println("ERROR: " + fc.Err().Error())
		os.Exit(1)
	}
	if len(batch) == 0 {
		fmt.Println("ERROR: No samples found in " + path)
		os.Exit(1)
	}
	su := types.SamplesUpdate{DatasetID: datasetID, Samples: batch}
	if netID != "" {
		su.Train = &types.TrainRequest{NetID: netID}
		if epochs > 0 {
			su.Train.Options = map[string]interface{}{"epochs": epochs}
		}
	}
	err = send(p, path, &su)
	if err != nil {
		fmt.Println("ERROR: " + err.Error())
		os.Exit(1)
	}
	sent += len(batch)
	fmt.Println("successfully produced " + strconv.Itoa(sent) + " samples")
}

// send encapsulates the logic for wrapping a samples update in a cloud event and sending it
func send(p producer.Producer, subject string, su *types.SamplesUpdate) error {
	event := cloudevents.NewEvent()
	event.SetDataSchema("github.com/qvantel/synapse/api/types/")
	event.SetID(uuid.New().String())
	event.SetSource("fcollect")
	event.SetSubject(subject)
	event.SetTime(time.Now())
	event.SetType(datasets.SamplesEventType)

	err := event.SetData(cloudevents.ApplicationJSON, su)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Send(su.DatasetID, raw)
}
