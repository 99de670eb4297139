package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sells-group/water-quality/pkg/earthengine"
)

type mapCall struct {
	Function string
	Vis      earthengine.Visualization
}

// fakeClient answers by the root function name of the submitted
// expression.
type fakeClient struct {
	mu      sync.Mutex
	values  map[string]string
	mapErrs map[string]error
	maps    []mapCall
}

func (f *fakeClient) ComputeValue(_ context.Context, n earthengine.Node) (json.RawMessage, error) {
	if _, err := earthengine.Serialize(n); err != nil {
		return nil, err
	}
	if v, ok := f.values[earthengine.FunctionName(n)]; ok {
		return json.RawMessage(v), nil
	}
	return nil, errors.New("unexpected compute")
}

func (f *fakeClient) CreateMap(_ context.Context, n earthengine.Node, vis earthengine.Visualization) (*earthengine.MapID, error) {
	if _, err := earthengine.Serialize(n); err != nil {
		return nil, err
	}
	name := earthengine.FunctionName(n)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.maps = append(f.maps, mapCall{Function: name, Vis: vis})
	if err := f.mapErrs[name]; err != nil {
		return nil, err
	}
	id := fmt.Sprintf("projects/p/maps/%d", len(f.maps))
	return &earthengine.MapID{Name: id, TileURL: "https://ee.test/v1/" + id + "/tiles/{z}/{x}/{y}"}, nil
}

const rectangleGeoJSON = `{"type":"Polygon","coordinates":[[[35.28,1.82],[35.32,1.82],[35.32,1.86],[35.28,1.86],[35.28,1.82]]]}`

// mapFor returns the map request whose expression root is function.
func (f *fakeClient) mapFor(function string) mapCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.maps {
		if m.Function == function {
			return m
		}
	}
	return mapCall{}
}
