package lanenet

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ExportRoadsToCSV writes road table. Lane columns are padded with zeros up to lanesColumns
func ExportRoadsToCSV(fname string, roads *RoadTable, lanesColumns int) error {
	return writeFile(fname, func(w io.Writer) error {
		return writeRoadsCSV(w, roads, lanesColumns)
	})
}

func writeRoadsCSV(w io.Writer, roads *RoadTable, lanesColumns int) error {
	if maxLanes := roads.MaxLanes(); maxLanes > lanesColumns {
		lanesColumns = maxLanes
	}
	writer := csv.NewWriter(w)
	writer.Comma = ','

	header := []string{"LinkID", "LaneNum", "RoadType", "TLinkID", "FnJunction", "TnJunction", "Left", "Through", "Right"}
	for k := 1; k <= lanesColumns; k++ {
		header = append(header, fmt.Sprintf("Lane%d", k))
	}
	header = append(header, "Length")
	err := writer.Write(header)
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, road := range roads.Roads {
		row := make([]string, 0, len(header))
		row = append(row,
			fmt.Sprintf("%d", road.LinkID),
			fmt.Sprintf("%d", road.LanesNum),
			road.RoadType,
			fmt.Sprintf("%d", road.OppositeID),
			fmt.Sprintf("%d", road.FromNode),
			fmt.Sprintf("%d", road.ToNode),
			fmt.Sprintf("%d", road.Left),
			fmt.Sprintf("%d", road.Through),
			fmt.Sprintf("%d", road.Right),
		)
		for k := 0; k < lanesColumns; k++ {
			lane := 0
			if k < len(road.Lanes) {
				lane = road.Lanes[k]
			}
			row = append(row, fmt.Sprintf("%d", lane))
		}
		row = append(row, fmt.Sprintf("%f", road.Length))
		err = writer.Write(row)
		if err != nil {
			return errors.Wrapf(err, "Can't write road %d", road.LinkID)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportLanesToCSV writes lane table. Geometry is encoded with given format (WKT or encoded polyline)
func ExportLanesToCSV(fname string, lanes []*Lane, geometryFormat string) error {
	return writeFile(fname, func(w io.Writer) error {
		return writeLanesCSV(w, lanes, geometryFormat)
	})
}

func writeLanesCSV(w io.Writer, lanes []*Lane, geometryFormat string) error {
	writer := csv.NewWriter(w)
	writer.Comma = ','

	err := writer.Write([]string{"LaneID", "LinkID", "Left", "Through", "Right", "Length", "geometry"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, lane := range lanes {
		err = writer.Write([]string{
			fmt.Sprintf("%d", lane.LaneID),
			fmt.Sprintf("%d", lane.LinkID),
			fmt.Sprintf("%d", lane.Left),
			fmt.Sprintf("%d", lane.Through),
			fmt.Sprintf("%d", lane.Right),
			fmt.Sprintf("%f", lane.Length),
			encodeLineString(lane.Geom, geometryFormat),
		})
		if err != nil {
			return errors.Wrapf(err, "Can't write lane %d", lane.LaneID)
		}
	}
	writer.Flush()
	return writer.Error()
}
