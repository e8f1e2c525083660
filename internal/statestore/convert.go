package statestore

import (
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/ilyafedotov-ops/tfstatectl/internal/tfstate"
)

func toResourceRows(snapshotID string, parsed []tfstate.ResourceInstance) []*models.ResourceInstance {
	rows := make([]*models.ResourceInstance, 0, len(parsed))
	for _, r := range parsed {
		rows = append(rows, &models.ResourceInstance{
			SnapshotID:     snapshotID,
			Address:        r.Address,
			ModuleAddress:  r.ModuleAddress,
			Mode:           r.Mode,
			Type:           r.Type,
			Name:           r.Name,
			Provider:       r.Provider,
			IndexKey:       r.IndexKey,
			SchemaVersion:  r.SchemaVersion,
			Attributes:     models.JSONBlob(r.Attributes),
			SensitivePaths: models.StringList(r.SensitivePaths),
			DependsOn:      models.StringList(r.DependsOn),
		})
	}
	return rows
}

func toOutputRows(snapshotID string, parsed []tfstate.Output) []*models.Output {
	rows := make([]*models.Output, 0, len(parsed))
	for _, o := range parsed {
		rows = append(rows, &models.Output{
			SnapshotID: snapshotID,
			Name:       o.Name,
			Value:      models.JSONValue{V: o.Value},
			Sensitive:  o.Sensitive,
			TypeHint:   o.TypeHint,
		})
	}
	return rows
}
