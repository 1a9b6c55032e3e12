package elastic

import "encoding/json"

type ElasticResultHit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
	Sort   []interface{}   `json:"sort,omitempty"`
}

type ElasticResultTotal struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

type ElasticResultHits struct {
	Total    ElasticResultTotal `json:"total"`
	MaxScore float64            `json:"max_score"`
	Hits     []ElasticResultHit `json:"hits"`
}

type ElasticResultShards struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type ElasticSearchResult struct {
	Took     int                 `json:"took"`
	TimedOut bool                `json:"timed_out"`
	Shards   ElasticResultShards `json:"_shards"`
	Hits     ElasticResultHits   `json:"hits"`
}
