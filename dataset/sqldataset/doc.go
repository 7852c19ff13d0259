/*
Package sqldataset provides an implementation of dataset.Dataset
that uses an SQL database as backend.

The dataset uses 2 database tables:
  - One for storing the available feature values
  - One for the samples

Samples are stored on the samples table, with their values as
references to entries in the feature value table. Database access
goes through the Adapter interface, so the same dataset works over
any SQL backend an adapter exists for.
*/
package sqldataset
