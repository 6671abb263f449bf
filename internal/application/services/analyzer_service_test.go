package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuforge/backend/internal/domain/models"
)

const sampleProcedure = `CREATE PROCEDURE [dbo].[usp_ProcessOrderBatch]
    @BatchID INT,
    @MaxRows INT = 100,
    @TotalAmount DECIMAL(10,2) OUTPUT
AS
BEGIN
    SET NOCOUNT ON;

    -- Begin BAS-2201
    SELECT o.OrderID, o.Total
    FROM dbo.OrderHeader o
    JOIN dbo.OrderLine ol ON ol.OrderID = o.OrderID
    WHERE o.BatchID = @BatchID;
    -- End BAS-2201

    IF @MaxRows > 0
    BEGIN
        UPDATE dbo.OrderHeader SET Processed = 1 WHERE BatchID = @BatchID;
        EXEC dbo.usp_RecalculateTotals @BatchID;
        EXEC sp_updatestats;
    END

    SELECT @TotalAmount = SUM(Total) FROM dbo.OrderHeader WHERE BatchID = @BatchID;
END`

func TestNewAnalyzerService_ParserDriverRegistered(t *testing.T) {
	// parser.New panics unless a value-expression driver is linked in, so
	// construction plus a parse of a statement carrying literals proves the
	// driver import is wired.
	svc := NewAnalyzerService()

	nodes, _, err := svc.parser.Parse("SELECT id FROM order_header WHERE batch_id = 7", "", "")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestAnalyzerService_Analyze(t *testing.T) {
	svc := NewAnalyzerService()

	facts, err := svc.Analyze(sampleProcedure)
	require.NoError(t, err)

	assert.Equal(t, "dbo", facts.SchemaName)
	assert.Equal(t, "usp_ProcessOrderBatch", facts.Name)

	require.Len(t, facts.Parameters, 3)
	assert.Equal(t, models.Parameter{Name: "@BatchID", Type: "INT"}, facts.Parameters[0])
	assert.Equal(t, "@MaxRows", facts.Parameters[1].Name)
	assert.Equal(t, "100", facts.Parameters[1].DefaultValue)
	assert.Equal(t, "@TotalAmount", facts.Parameters[2].Name)
	assert.Equal(t, "DECIMAL(10,2)", facts.Parameters[2].Type)

	assert.Equal(t, []string{"dbo.OrderHeader", "dbo.OrderLine"}, facts.Tables)

	// sp_updatestats is a system procedure and must not be listed
	assert.Equal(t, []string{"dbo.usp_RecalculateTotals"}, facts.Procedures)

	require.Len(t, facts.Markers, 1)
	assert.Equal(t, "BAS-2201", facts.Markers[0].Ref)
	assert.Contains(t, facts.Markers[0].SQL, "FROM dbo.OrderHeader")
	assert.NotContains(t, facts.Markers[0].SQL, "UPDATE")

	assert.Equal(t, 2, facts.MaxDepth)
	assert.Equal(t, 7, facts.StatementCount)
	assert.Greater(t, facts.ComplexityScore, 30)
	assert.LessOrEqual(t, facts.ComplexityScore, 100)
}

func TestAnalyzerService_Analyze_DefaultSchema(t *testing.T) {
	svc := NewAnalyzerService()

	facts, err := svc.Analyze(`CREATE PROC usp_GetWidget @ID INT AS SELECT Name FROM Widget WHERE WidgetID = @ID;`)
	require.NoError(t, err)

	assert.Equal(t, "dbo", facts.SchemaName)
	assert.Equal(t, "usp_GetWidget", facts.Name)
	assert.Equal(t, []string{"Widget"}, facts.Tables)
}

func TestAnalyzerService_Analyze_TempTablesSkipped(t *testing.T) {
	svc := NewAnalyzerService()

	// TOP forces the degraded extraction path; temp tables and table
	// variables must still be excluded there.
	source := `CREATE PROCEDURE dbo.usp_Report
AS
BEGIN
    SELECT TOP 10 * FROM #StagingRows s JOIN dbo.SalesFact f ON f.RowID = s.RowID;
END`

	facts, err := svc.Analyze(source)
	require.NoError(t, err)
	assert.Equal(t, []string{"dbo.SalesFact"}, facts.Tables)
}

func TestAnalyzerService_Analyze_UnbalancedMarkers(t *testing.T) {
	svc := NewAnalyzerService()

	t.Run("Begin without End", func(t *testing.T) {
		_, err := svc.Analyze(`CREATE PROCEDURE dbo.usp_X AS
-- Begin BAS-0001
SELECT 1;`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unbalanced change marker")
		assert.Contains(t, err.Error(), "BAS-0001")
	})

	t.Run("End without Begin", func(t *testing.T) {
		_, err := svc.Analyze(`CREATE PROCEDURE dbo.usp_X AS
SELECT 1;
-- End BAS-0002
`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unbalanced change marker")
	})
}

func TestAnalyzerService_Analyze_NoHeader(t *testing.T) {
	svc := NewAnalyzerService()

	_, err := svc.Analyze(`SELECT * FROM NotAProcedure;`)
	assert.Error(t, err)
}

func TestScanControlFlowDepth_IgnoresTransactions(t *testing.T) {
	body := `BEGIN
    BEGIN TRAN
    UPDATE t SET x = 1;
    COMMIT
END`
	assert.Equal(t, 1, scanControlFlowDepth(body))
}
