package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpSchemaDB_GroupsColumnsByTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type"}).
		AddRow("dbo", "orders", "order_id", "int").
		AddRow("dbo", "orders", "customer_id", "int").
		AddRow("dbo", "customers", "customer_id", "int").
		AddRow("dbo", "customers", "name", "varchar")
	mock.ExpectQuery(`SELECT table_schema, table_name, column_name, data_type`).WillReturnRows(rows)

	registry, err := DumpSchemaDB(context.Background(), db)
	require.NoError(t, err)

	require.True(t, registry.TableExists("dbo.orders"))
	assert.Equal(t, []string{"order_id", "customer_id"}, registry.ColumnsOf("dbo.orders"))

	require.True(t, registry.TableExists("DBO.Customers"))
	assert.Equal(t, []string{"customer_id", "name"}, registry.ColumnsOf("dbo.customers"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDumpSchemaDB_EmptyDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type"})
	mock.ExpectQuery(`SELECT table_schema, table_name, column_name, data_type`).WillReturnRows(rows)

	registry, err := DumpSchemaDB(context.Background(), db)
	require.NoError(t, err)
	assert.False(t, registry.TableExists("dbo.orders"))
}

func TestDumpSchemaDB_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT table_schema, table_name, column_name, data_type`).
		WillReturnError(assert.AnError)

	_, err = DumpSchemaDB(context.Background(), db)
	require.Error(t, err)
}
