package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/config"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/cache"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/detector"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/service"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store/httpstore"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

var enrollFlags struct {
	code        string
	name        string
	nationalID  string
	accessLevel int
	shift       string
	photoPath   string
}

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register a new employee from a photo",
	Long: `Enroll extracts a face descriptor from the given photo via the detector
sidecar and registers the employee on the hub. The photo must contain exactly
one face.`,
	RunE: runEnroll,
}

func init() {
	enrollCmd.Flags().StringVar(&enrollFlags.code, "code", "", "employee code (required)")
	enrollCmd.Flags().StringVar(&enrollFlags.name, "name", "", "full name (required)")
	enrollCmd.Flags().StringVar(&enrollFlags.nationalID, "national-id", "", "national id (required)")
	enrollCmd.Flags().IntVar(&enrollFlags.accessLevel, "access-level", 0, "access level")
	enrollCmd.Flags().StringVar(&enrollFlags.shift, "shift", "", "assigned shift name")
	enrollCmd.Flags().StringVar(&enrollFlags.photoPath, "photo", "", "path to a photo with exactly one face (required)")
	_ = enrollCmd.MarkFlagRequired("code")
	_ = enrollCmd.MarkFlagRequired("name")
	_ = enrollCmd.MarkFlagRequired("national-id")
	_ = enrollCmd.MarkFlagRequired("photo")
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "presencia-enroll ", log.LstdFlags|log.LUTC)
	ctx := cmd.Context()

	photo, err := os.ReadFile(enrollFlags.photoPath)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}

	det := detector.NewClient(cfg.DetectorURL)
	desc, err := det.DetectSingleFace(ctx, photo)
	if err != nil {
		return fmt.Errorf("detect face: %w", err)
	}
	if desc == nil {
		return fmt.Errorf("photo must contain exactly one face")
	}

	shifts, err := types.LoadShiftSchedule(cfg.ShiftConfigPath)
	if err != nil {
		return err
	}

	records := httpstore.New(cfg.StoreURL)
	stateCache := cache.New(records, logger)
	if err := stateCache.Initialize(ctx); err != nil {
		return fmt.Errorf("hub sync: %w", err)
	}

	enrollment := service.NewEnrollmentService(records, stateCache, shifts, logger)
	stored, err := enrollment.Enroll(ctx, types.Identity{
		EmployeeCode: enrollFlags.code,
		Name:         enrollFlags.name,
		NationalID:   enrollFlags.nationalID,
		AccessLevel:  enrollFlags.accessLevel,
		Shift:        enrollFlags.shift,
		Descriptor:   desc,
		PhotoRef:     enrollFlags.photoPath,
	})
	if err != nil {
		return err
	}

	fmt.Printf("enrolled %s (%s)\n", stored.Name, stored.EmployeeCode)
	return nil
}
