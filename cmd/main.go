package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gossipkv/gossipkv/pkg/gossipkv"
)

func main() {
	cluster, err := gossipkv.New(gossipkv.Options{
		NumNodes:          5,
		Fanout:            1,
		MessageDelay:      1.0,
		ClientTimer:       3.0,
		ClientTimerRandom: 1.0,
		Seed:              42,
	})
	if err != nil {
		log.Fatal(err)
	}

	ids := cluster.NodeIDs()
	cluster.SetKV(ids[0], "abc", "efg")

	// Drive virtual time the way a visualiser would, one small tick at
	// a time, printing a snapshot every simulated second.
	for i := 1; i <= 400; i++ {
		cluster.Tick(0.1)
		if i%10 != 0 {
			continue
		}
		snapshot, err := json.Marshal(cluster.Debug())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("t=%05.1f %s\n", cluster.Time(), snapshot)
	}

	fmt.Println("final states:")
	for _, id := range ids {
		state, err := json.Marshal(cluster.DebugClient(id))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  %s %s\n", id, state)
	}
}
