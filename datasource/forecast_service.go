package datasource

import (
	"forecast-dashboard/models"
	"forecast-dashboard/pipeline"
	"forecast-dashboard/reactive"
)

// IndexForecastService answers forecast queries from the latest ForecastIndex
type IndexForecastService struct {
	index reactive.Stream[*models.ForecastIndex]
}

// NewIndexForecastService creates a service over a stream of indexes
func NewIndexForecastService(index reactive.Stream[*models.ForecastIndex]) *IndexForecastService {
	return &IndexForecastService{index: index}
}

// CreateForecastDataStream re-queries whenever the filter or the index changes
func (s *IndexForecastService) CreateForecastDataStream(filter reactive.Stream[models.Filter]) reactive.Stream[models.ForecastDataSet] {
	return reactive.CombineLatest2[*models.ForecastIndex, models.Filter](s.index, filter,
		func(idx *models.ForecastIndex, f models.Filter) models.ForecastDataSet {
			return idx.Query(f)
		})
}

// Ensure IndexForecastService implements ForecastDataService
var _ pipeline.ForecastDataService = (*IndexForecastService)(nil)
