package lanenet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

func lineStringShape(line orb.LineString) *shp.PolyLine {
	points := make([]shp.Point, len(line))
	for i, pt := range line {
		points[i] = shp.Point{X: pt.X(), Y: pt.Y()}
	}
	return shp.NewPolyLine([][]shp.Point{points})
}

// shapefileWriter wraps go-shp writer. The library names attribute table '<base>dbf', so Close moves it to '<base>.dbf'
type shapefileWriter struct {
	*shp.Writer
	fname string
}

func createShapefile(fname string, shapeType shp.ShapeType, fields []shp.Field) (*shapefileWriter, error) {
	writer, err := shp.Create(fname, shapeType)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create shapefile")
	}
	shape := &shapefileWriter{Writer: writer, fname: fname}
	if err = writer.SetFields(fields); err != nil {
		shape.Close()
		return nil, errors.Wrap(err, "Can't prepare attribute table")
	}
	return shape, nil
}

func (shape *shapefileWriter) Close() error {
	shape.Writer.Close()
	base := strings.TrimSuffix(shape.fname, filepath.Ext(shape.fname))
	misplaced := base + "dbf"
	if _, err := os.Stat(misplaced); err != nil {
		return nil
	}
	return errors.Wrap(os.Rename(misplaced, base+".dbf"), "Can't move attribute table")
}

// ExportRoadsToShapefile mirrors road table as polyline shapefile. DBF field names are limited to 10 characters
func ExportRoadsToShapefile(fname string, roads *RoadTable) (err error) {
	fields := []shp.Field{
		shp.NumberField("LinkID", 10),
		shp.NumberField("LaneNum", 2),
		shp.StringField("RoadType", 32),
		shp.NumberField("TLinkID", 10),
		shp.NumberField("FnJunction", 10),
		shp.NumberField("TnJunction", 10),
		shp.NumberField("Left", 10),
		shp.NumberField("Through", 10),
		shp.NumberField("Right", 10),
		shp.FloatField("Length", 16, 3),
	}
	lanesFrom := len(fields) - 1
	maxLanes := roads.MaxLanes()
	lanesFields := make([]shp.Field, 0, maxLanes)
	for k := 1; k <= maxLanes; k++ {
		lanesFields = append(lanesFields, shp.NumberField(fmt.Sprintf("Lane%d", k), 11))
	}
	fields = append(fields[:lanesFrom], append(lanesFields, fields[lanesFrom])...)
	shape, err := createShapefile(fname, shp.POLYLINE, fields)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := shape.Close(); err == nil {
			err = closeErr
		}
	}()

	for _, road := range roads.Roads {
		row := int(shape.Write(lineStringShape(road.Geom)))
		values := []interface{}{road.LinkID, road.LanesNum, road.RoadType, road.OppositeID, int(road.FromNode), int(road.ToNode), road.Left, road.Through, road.Right}
		for k := 0; k < maxLanes; k++ {
			lane := 0
			if k < len(road.Lanes) {
				lane = road.Lanes[k]
			}
			values = append(values, lane)
		}
		values = append(values, road.Length)
		for field, value := range values {
			if err := shape.WriteAttribute(row, field, value); err != nil {
				return errors.Wrapf(err, "Can't write attribute %d of road %d", field, road.LinkID)
			}
		}
	}
	return nil
}

// ExportLanesToShapefile mirrors lane table as polyline shapefile
func ExportLanesToShapefile(fname string, lanes []*Lane) (err error) {
	shape, err := createShapefile(fname, shp.POLYLINE, []shp.Field{
		shp.NumberField("LaneID", 11),
		shp.NumberField("LinkID", 10),
		shp.NumberField("Left", 11),
		shp.NumberField("Through", 11),
		shp.NumberField("Right", 11),
		shp.FloatField("Length", 16, 3),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := shape.Close(); err == nil {
			err = closeErr
		}
	}()
	for _, lane := range lanes {
		row := int(shape.Write(lineStringShape(lane.Geom)))
		values := []interface{}{lane.LaneID, lane.LinkID, lane.Left, lane.Through, lane.Right, lane.Length}
		for field, value := range values {
			if err := shape.WriteAttribute(row, field, value); err != nil {
				return errors.Wrapf(err, "Can't write attribute %d of lane %d", field, lane.LaneID)
			}
		}
	}
	return nil
}
