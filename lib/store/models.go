package store

// WatchedAddress contains the fields for a monitored address saved to DB.
type WatchedAddress struct {
	ID   []byte `json:"id"`
	Name string `json:"name"`
	Addr string `json:"addr"`
}

// WatchList groups the monitored addresses of one network.
type WatchList struct {
	Net  string           `json:"net"`
	Addr []WatchedAddress `json:"addresses"`
}

// WatcherState contains the fields of a network watcher's scan state saved to
// DB: last parsed block, the revolving window of recent block hashes used for
// reorg detection, and the map of monitored objects.
type WatcherState struct {
	Block uint64                 `json:"block" bson:"block"`
	Bh    []string               `json:"bh" bson:"bh"`
	Bhi   int                    `json:"bhi" bson:"bhi"`
	Map   map[string]interface{} `json:"map" bson:"map"`
}
