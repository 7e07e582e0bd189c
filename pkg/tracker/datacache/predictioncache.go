package datacache

import (
	"sync"

	"github.com/transitflow/transitflow/pkg/tdf"
)

// PredictionDataCache is the serving projection of per-vehicle stop
// predictions. The whole prediction list for a vehicle is swapped in one
// store, so readers always see a self consistent set
type PredictionDataCache struct {
	predictions sync.Map // vehicle identifier -> []*tdf.StopPrediction
}

func NewPredictionDataCache() *PredictionDataCache {
	return &PredictionDataCache{}
}

func (c *PredictionDataCache) UpdatePredictions(vehicleID string, predictions []*tdf.StopPrediction) {
	c.predictions.Store(vehicleID, predictions)
}

func (c *PredictionDataCache) GetPredictionsForVehicle(vehicleID string) []*tdf.StopPrediction {
	value, ok := c.predictions.Load(vehicleID)
	if !ok {
		return nil
	}

	stored := value.([]*tdf.StopPrediction)
	predictions := make([]*tdf.StopPrediction, len(stored))
	copy(predictions, stored)

	return predictions
}

// RemovePredictions clears the predictions tied to a vehicle that became
// unpredictable
func (c *PredictionDataCache) RemovePredictions(vehicleID string) {
	c.predictions.Delete(vehicleID)
}
