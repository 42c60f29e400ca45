package mcpserver

// GraphFormatContract describes the process graph document that projects
// store and the aggregation tools read.
const GraphFormatContract = `# pcfledger Graph Document Format

A graph document describes the processes of one product and the flows
between them. Emissions are always amount x dataset.valueCO2e (kg CO2e);
units are informational and never converted.

## Structure

` + "```" + `json
{
  "version": 1,
  "nodes": [
    {
      "id": "p1",
      "title": "Melting",
      "stage": "production",
      "position": {"x": 280, "y": 120},
      "elementary": {
        "inputs":  [{"kind": "energy", "name": "power", "amount": 100, "unit": "kWh", "datasetId": 1}],
        "outputs": [{"kind": "waste", "name": "slag", "amount": 2, "unit": "kg"}]
      }
    }
  ],
  "edges": [
    {"id": "e1", "source": "p1", "target": "p2", "data": {"datasetId": 3, "amount": 120, "unit": "tkm"}}
  ]
}
` + "```" + `

## Rules

1. **stage** is one of ` + "`material`, `production`, `distribution`, `use`, `eol`" + `.
   Anything else is read as ` + "`production`" + `.
2. **Input kinds** are ` + "`material`" + ` or ` + "`energy`" + `; **output kinds** are
   ` + "`waste`" + ` or ` + "`emissions`" + `. Invalid kinds fall back to material / waste.
3. **datasetId** references a catalog dataset (see list_datasets). Items without a
   dataset, or with an unknown one, contribute nothing.
4. **Amounts** are non-negative numbers; numeric strings are accepted and negative
   values are read as 0.
5. Nodes without an id and edges without source or target are dropped.
6. Legacy ` + "`inflows`/`outflows`" + ` arrays are migrated to inputs/outputs on read.

## Aggregation variants

- **Phase/process** (project_results): sums node inputs and outputs per stage and
  per process; hotspots are the top processes.
- **Edge** (compute_edges): sums edge amounts; each resolved edge is a hotspot
  labelled with its dataset name, top 10, total rounded to 4 decimals.
`
