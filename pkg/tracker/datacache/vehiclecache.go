package datacache

import (
	"sync"

	"github.com/transitflow/transitflow/pkg/tdf"
)

// VehicleDataCache is the read-mostly serving projection of vehicle state.
// Snapshots are replaced wholesale on update so readers never observe a
// partially updated vehicle, and every accessor returns copies that are safe
// to hand across a transport boundary
type VehicleDataCache struct {
	vehicles sync.Map // vehicle identifier -> *tdf.Vehicle

	indexMutex       sync.RWMutex
	byRouteID        map[string]map[string]struct{}
	byRouteShortName map[string]map[string]struct{}
}

func NewVehicleDataCache() *VehicleDataCache {
	return &VehicleDataCache{
		byRouteID:        map[string]map[string]struct{}{},
		byRouteShortName: map[string]map[string]struct{}{},
	}
}

// UpdateVehicle atomically replaces the serving entry for a vehicle. An
// unpredictable vehicle stays retrievable by identifier but is dropped from
// the route indexes so route queries treat it as absent
func (c *VehicleDataCache) UpdateVehicle(vehicle *tdf.Vehicle) {
	// The map store & index rewrite commit under one lock so concurrent
	// updates for the same vehicle cannot land in opposite orders
	c.indexMutex.Lock()
	defer c.indexMutex.Unlock()

	previous, _ := c.vehicles.Load(vehicle.PrimaryIdentifier)
	c.vehicles.Store(vehicle.PrimaryIdentifier, vehicle)

	if previous != nil {
		previousVehicle := previous.(*tdf.Vehicle)
		removeFromIndex(c.byRouteID, previousVehicle.RouteID, vehicle.PrimaryIdentifier)
		removeFromIndex(c.byRouteShortName, previousVehicle.RouteShortName, vehicle.PrimaryIdentifier)
	}

	if vehicle.Predictable {
		addToIndex(c.byRouteID, vehicle.RouteID, vehicle.PrimaryIdentifier)
		addToIndex(c.byRouteShortName, vehicle.RouteShortName, vehicle.PrimaryIdentifier)
	}
}

func (c *VehicleDataCache) GetVehicle(vehicleID string) *tdf.Vehicle {
	value, ok := c.vehicles.Load(vehicleID)
	if !ok {
		return nil
	}

	return value.(*tdf.Vehicle)
}

func (c *VehicleDataCache) GetVehicles() []*tdf.Vehicle {
	var vehicles []*tdf.Vehicle

	c.vehicles.Range(func(key, value any) bool {
		vehicles = append(vehicles, value.(*tdf.Vehicle))
		return true
	})

	return vehicles
}

func (c *VehicleDataCache) GetVehiclesByIDs(vehicleIDs []string) []*tdf.Vehicle {
	var vehicles []*tdf.Vehicle

	for _, vehicleID := range vehicleIDs {
		if vehicle := c.GetVehicle(vehicleID); vehicle != nil {
			vehicles = append(vehicles, vehicle)
		}
	}

	return vehicles
}

// GetVehiclesForRoute returns the predictable vehicles currently serving any
// of the given route short names
func (c *VehicleDataCache) GetVehiclesForRoute(routeShortNames []string) []*tdf.Vehicle {
	return c.collect(c.byRouteShortName, routeShortNames)
}

// GetVehiclesForRouteID returns the predictable vehicles currently serving
// any of the given route identifiers
func (c *VehicleDataCache) GetVehiclesForRouteID(routeIDs []string) []*tdf.Vehicle {
	return c.collect(c.byRouteID, routeIDs)
}

func (c *VehicleDataCache) collect(index map[string]map[string]struct{}, keys []string) []*tdf.Vehicle {
	c.indexMutex.RLock()
	var vehicleIDs []string
	for _, key := range keys {
		for vehicleID := range index[key] {
			vehicleIDs = append(vehicleIDs, vehicleID)
		}
	}
	c.indexMutex.RUnlock()

	return c.GetVehiclesByIDs(vehicleIDs)
}

func addToIndex(index map[string]map[string]struct{}, key string, vehicleID string) {
	if key == "" {
		return
	}

	if index[key] == nil {
		index[key] = map[string]struct{}{}
	}
	index[key][vehicleID] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, key string, vehicleID string) {
	if key == "" {
		return
	}

	delete(index[key], vehicleID)
	if len(index[key]) == 0 {
		delete(index, key)
	}
}
