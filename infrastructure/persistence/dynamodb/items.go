package dynamodb

import (
	"fmt"

	"kaku/domain/core/entities"
)

const (
	entityPoI     = "POI"
	entityProject = "PROJECT"
	entityScribe  = "SCRIBE"
)

// poiItem is the stored form of a PoI. The snapshot fields are inlined next
// to the key attributes.
type poiItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.PoISnapshot
}

func newPoIItem(s entities.PoISnapshot) poiItem {
	return poiItem{
		PK:          pk("POI", s.ID),
		SK:          entityPoI,
		GSI1PK:      pk("PROJECT", s.ProjectID),
		GSI1SK:      fmt.Sprintf("POI#%020d#%s", s.CreatedAt.UnixMilli(), s.ID),
		EntityType:  entityPoI,
		PoISnapshot: s,
	}
}

type projectItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.ProjectSnapshot
}

func newProjectItem(s entities.ProjectSnapshot) projectItem {
	return projectItem{
		PK:              pk("PROJECT", s.ID),
		SK:              "METADATA",
		GSI1PK:          pk("UNIVERSE", s.UniverseID),
		GSI1SK:          fmt.Sprintf("PROJECT#%s#%s", s.Name, s.ID),
		EntityType:      entityProject,
		ProjectSnapshot: s,
	}
}

// slugItem reserves a slug inside a universe
type slugItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ProjectID string `dynamodbav:"ProjectID"`
}

func newSlugItem(s entities.ProjectSnapshot) slugItem {
	return slugItem{
		PK:        fmt.Sprintf("SLUG#%s#%s", s.UniverseID, s.Slug),
		SK:        "SLUG",
		ProjectID: s.ID,
	}
}

type scribeItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	entities.ScribeSnapshot
}

func newScribeItem(s entities.ScribeSnapshot) scribeItem {
	return scribeItem{
		PK:             pk("SCRIBE", s.ID),
		SK:             "METADATA",
		EntityType:     entityScribe,
		ScribeSnapshot: s,
	}
}
