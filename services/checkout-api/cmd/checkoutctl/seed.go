package main

import (
	"fmt"
	"os"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/models"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Orders []seedOrder `yaml:"orders"`
}

type seedOrder struct {
	Reference string `yaml:"reference"`
	Customer  struct {
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
		Phone string `yaml:"phone"`
	} `yaml:"customer"`
	Items []struct {
		Name      string `yaml:"name"`
		Quantity  int    `yaml:"quantity"`
		UnitValue string `yaml:"unit_value"`
	} `yaml:"items"`
}

func seedCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Insert pending orders from a YAML file",
		Long: `Insert pending orders from a YAML file. Existing references are left untouched.

Example file:
  orders:
    - reference: ORD-1001
      customer: {name: Ana Silva, email: ana@example.com, phone: "+5511999990000"}
      items:
        - {name: Widget, quantity: 2, unit_value: "19.99"}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := loadSeedFile(args[0])
			if err != nil {
				return err
			}
			dsn, err := primaryDSN(cmd)
			if err != nil {
				return err
			}
			if err = database.RunMigrations(logger, dsn); err != nil {
				return err
			}
			ctx := cmd.Context()
			db, disconnect, err := openDB(ctx, cmd, logger)
			if err != nil {
				return err
			}
			defer disconnect()

			repo := repositories.NewOrderRepository()
			for _, order := range orders {
				if err = repo.Create(ctx, db, order); err != nil {
					return fmt.Errorf("seed %s: %w", order.Reference, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d order(s)\n", len(orders))
			return nil
		},
	}
}

// loadSeedFile decodes and validates a seed file into pending orders.
func loadSeedFile(path string) ([]models.Order, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err = yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(file.Orders) == 0 {
		return nil, fmt.Errorf("%s contains no orders", path)
	}

	orders := make([]models.Order, 0, len(file.Orders))
	for _, o := range file.Orders {
		if o.Reference == "" {
			return nil, fmt.Errorf("%s: order without reference", path)
		}
		order := models.Order{
			Reference: o.Reference,
			Customer:  models.Customer{Name: o.Customer.Name, Email: o.Customer.Email, Phone: o.Customer.Phone},
		}
		for i, item := range o.Items {
			value, err := decimal.NewFromString(item.UnitValue)
			if err != nil {
				return nil, fmt.Errorf("%s item %d: unit_value %q: %w", o.Reference, i+1, item.UnitValue, err)
			}
			order.Items = append(order.Items, models.LineItem{
				Position:  i + 1,
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitValue: value,
			})
		}
		orders = append(orders, order)
	}
	return orders, nil
}
