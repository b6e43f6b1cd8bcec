package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
)

// WritePCD writes an organized point cloud in the ASCII PCD format.
func WritePCD(out io.Writer, width, height int, points []r3.Vector) error {
	if len(points) != width*height {
		return fmt.Errorf("got %d points for a %dx%d cloud", len(points), width, height)
	}

	w := bufio.NewWriter(out)

	_, err := fmt.Fprintf(w, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 8 8 8\n"+
		"TYPE F F F\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA ascii\n",
		width,
		height,
		len(points),
	)
	if err != nil {
		return err
	}

	for _, p := range points {
		if _, err := fmt.Fprintf(w, "%f %f %f\n", p.X, p.Y, p.Z); err != nil {
			return err
		}
	}

	return w.Flush()
}

// WritePCDFile writes the cloud to path, replacing any existing file.
func WritePCDFile(path string, width, height int, points []r3.Vector) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create point cloud file: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if err := WritePCD(f, width, height, points); err != nil {
		return fmt.Errorf("could not write point cloud: %w", err)
	}
	return nil
}
