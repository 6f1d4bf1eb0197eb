package service

import (
	"fmt"

	"crm-backend/internal/domains/importer/model"
)

// importerSet is the set of entity importers an import type drives. The
// primary importer always runs; secondaries run only for rows where their
// data is present, attached to the primary's resulting customer.
type importerSet struct {
	primary     EntityImporter
	secondaries []EntityImporter
}

var importerSets = map[model.ImportType]importerSet{
	model.TypeCustomer: {primary: customerImporter{}},
	model.TypeContact:  {primary: contactImporter{}},
	model.TypeEnergy:   {primary: energyImporter{}},
	model.TypeFull: {
		primary:     customerImporter{},
		secondaries: []EntityImporter{contactImporter{}, energyImporter{}},
	},
}

func importersFor(importType model.ImportType) (importerSet, error) {
	set, ok := importerSets[importType]
	if !ok {
		return importerSet{}, fmt.Errorf("%w: %q", model.ErrUnknownImportType, importType)
	}
	return set, nil
}
